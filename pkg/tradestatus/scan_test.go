package tradestatus_test

import (
	"strings"

	"github.com/lisanmuaddib/lot-ingest/pkg/tradestatus"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/net/html"
)

const twoLotPage = `<html><body>
<div class="lot">
  <h3>Лот № 1</h3>
  <table>
    <tr><td>Статус торгов</td><td>Завершенные</td></tr>
    <tr><td>Начальная цена</td><td>1 000 000,00</td></tr>
  </table>
</div>
<div class="lot">
  <p><b>Лот №</b> 2</p>
  <table>
    <tr><td>Статус торгов</td><td>Завершенные</td></tr>
    <tr><td>Итоговая цена</td><td>489960.00</td></tr>
    <tr><td>Победитель</td><td>ООО "Вектор"</td></tr>
    <tr><td>ИНН победителя</td><td>7701234567</td></tr>
  </table>
</div>
<div class="lot">
  <h3>Лот № 3</h3>
  <table>
    <tr><td>Статус торгов</td><td>Идут торги</td></tr>
  </table>
</div>
</body></html>`

const captionPage = `<html><body>
<table>
  <caption>Лот № 1</caption>
  <tr><td>Статус торгов</td><td>Торги не состоялись</td></tr>
</table>
<table>
  <caption>Лот № 2</caption>
  <tr><td>Статус торгов</td><td>Завершенные</td></tr>
  <tr><td>Цена, предложенная победителем</td><td>489960.00</td></tr>
  <tr><td>Победитель</td><td>ООО "Вектор"</td></tr>
</table>
</body></html>`

const headerRowPage = `<html><body>
<h2>Лот № 9</h2>
<table>
  <tr><th colspan="2">Лот № 1</th></tr>
  <tr><td>Статус торгов</td><td>Идут торги</td></tr>
</table>
<table>
  <tr><th colspan="2">Лот № 2</th></tr>
  <tr><td>Статус торгов</td><td>Завершенные</td></tr>
  <tr><td>Начальная цена</td><td>500 000,00</td></tr>
  <tr><td>Итоговая цена</td><td>520 000,00</td></tr>
  <tr><td>Наименование победителя</td><td>ИП Сидоров</td></tr>
</table>
</body></html>`

func parse(body string) *html.Node {
	root, err := html.Parse(strings.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	return root
}

var _ = Describe("ScanPage", func() {
	It("reads each lot only from its own table", func() {
		statuses := tradestatus.ScanPage(parse(twoLotPage), nil)
		Expect(statuses).To(HaveLen(3))

		Expect(statuses[0].Number).To(Equal("1"))
		Expect(statuses[0].TradeStatus).To(Equal("Завершенные"))
		Expect(statuses[0].FinalPrice).To(BeNil())
		Expect(statuses[0].WinnerName).To(BeNil())

		Expect(statuses[1].Number).To(Equal("2"))
		Expect(*statuses[1].FinalPrice).To(Equal(489960.00))
		Expect(*statuses[1].WinnerName).To(Equal(`ООО "Вектор"`))
		Expect(*statuses[1].WinnerINN).To(Equal("7701234567"))

		Expect(statuses[2].Number).To(Equal("3"))
		Expect(statuses[2].TradeStatus).To(Equal("Идут торги"))
	})

	It("keeps only the requested lots", func() {
		statuses := tradestatus.ScanPage(parse(twoLotPage), map[string]bool{"2": true})
		Expect(statuses).To(HaveLen(1))
		Expect(statuses[0].Number).To(Equal("2"))
	})

	It("ignores status tables with no lot heading before them", func() {
		statuses := tradestatus.ScanPage(parse(`<table><tr><td>Статус торгов</td><td>Завершенные</td></tr></table>`), nil)
		Expect(statuses).To(BeEmpty())
	})

	It("takes the lot number from a caption of the status table", func() {
		statuses := tradestatus.ScanPage(parse(captionPage), nil)
		Expect(statuses).To(HaveLen(2))

		Expect(statuses[0].Number).To(Equal("1"))
		Expect(statuses[0].TradeStatus).To(Equal("Торги не состоялись"))
		Expect(statuses[0].FinalPrice).To(BeNil())
		Expect(statuses[0].WinnerName).To(BeNil())

		Expect(statuses[1].Number).To(Equal("2"))
		Expect(statuses[1].TradeStatus).To(Equal("Завершенные"))
		Expect(*statuses[1].FinalPrice).To(Equal(489960.00))
		Expect(*statuses[1].WinnerName).To(Equal(`ООО "Вектор"`))
	})

	It("takes the lot number from a header row inside the table", func() {
		statuses := tradestatus.ScanPage(parse(headerRowPage), map[string]bool{"2": true})
		Expect(statuses).To(HaveLen(1))
		Expect(statuses[0].Number).To(Equal("2"))
		Expect(*statuses[0].FinalPrice).To(Equal(520000.00))
		Expect(*statuses[0].WinnerName).To(Equal("ИП Сидоров"))
	})

	It("reads a price row that mentions the winner as the price", func() {
		statuses := tradestatus.ScanPage(parse(captionPage), map[string]bool{"2": true})
		Expect(statuses).To(HaveLen(1))

		outcome := tradestatus.ApplyOutcomeRules(statuses[0])
		Expect(outcome.TradeStatus).To(Equal("Завершенные"))
		Expect(*outcome.FinalPrice).To(Equal(489960.00))
	})
})
