package classify

// Category is a whitelisted lot category with a hint shown to the model
type Category struct {
	Name string
	Hint string
}

// Taxonomy is the fixed set of categories a lot may be assigned
var Taxonomy = []Category{
	{Name: "Квартира", Hint: "жилое помещение в многоквартирном доме, комната, апартаменты"},
	{Name: "Жилой дом", Hint: "индивидуальный жилой дом, дача, таунхаус, часть дома"},
	{Name: "Земельный участок", Hint: "земли любого назначения, включая сельхозугодья"},
	{Name: "Нежилое помещение", Hint: "офис, склад, магазин, помещение в здании"},
	{Name: "Нежилое здание", Hint: "отдельно стоящее здание, сооружение, производственный корпус"},
	{Name: "Гараж", Hint: "гаражный бокс, машино-место, парковочное место"},
	{Name: "Легковой автомобиль", Hint: "легковые автомобили и внедорожники"},
	{Name: "Грузовой транспорт", Hint: "грузовики, тягачи, прицепы, автобусы"},
	{Name: "Спецтехника", Hint: "строительная и дорожная техника, погрузчики, краны"},
	{Name: "Сельскохозяйственная техника", Hint: "тракторы, комбайны, навесное оборудование"},
	{Name: "Водный транспорт", Hint: "суда, катера, лодки"},
	{Name: "Оборудование", Hint: "производственное, торговое, офисное оборудование и станки"},
	{Name: "Товарно-материальные ценности", Hint: "товары, сырьё, материалы, запасы"},
	{Name: "Дебиторская задолженность", Hint: "права требования к третьим лицам"},
	{Name: "Доля в уставном капитале", Hint: "доли и акции в компаниях, ценные бумаги"},
	{Name: "Прочее", Hint: "всё, что не подходит ни под одну категорию"},
}

// Whitelist returns the category names of Taxonomy
func Whitelist() []string {
	names := make([]string, len(Taxonomy))
	for i, c := range Taxonomy {
		names[i] = c.Name
	}
	return names
}
