package classify_test

import (
	"github.com/lisanmuaddib/lot-ingest/pkg/classify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Prompt", func() {
	It("numbers the sections and lists every category with its hint", func() {
		out, err := classify.NewPrompt(classify.Taxonomy).Format(map[string]any{"lots": `[{"id":"x"}]`})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("1. Task:"))
		Expect(out).To(ContainSubstring("5. Output Format:"))
		for _, c := range classify.Taxonomy {
			Expect(out).To(ContainSubstring(c.Name + ": " + c.Hint))
		}
		Expect(out).To(HaveSuffix("Lots:\n[{\"id\":\"x\"}]\n"))
	})
})

var _ = Describe("ParseResponse", func() {
	It("accepts a fenced JSON object", func() {
		resp, err := classify.ParseResponse("```json\n{\"lots\":[{\"id\":\"a\",\"categories\":[\"Гараж\"]}]}\n```")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Lots).To(HaveLen(1))
		Expect(resp.Lots[0].Categories).To(Equal([]string{"Гараж"}))
	})

	It("rejects malformed output", func() {
		_, err := classify.ParseResponse("Sure! Here are the categories")
		Expect(err).To(MatchError(ContainSubstring("malformed classification response")))
	})
})
