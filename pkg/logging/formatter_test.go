package logging_test

import (
	"errors"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("ColoredJSONFormatter", func() {
	It("puts priority fields first and quotes strings", func() {
		formatter := logging.NewColoredJSONFormatter()
		formatter.DisableColors = true

		entry := &logrus.Entry{
			Level:   logrus.WarnLevel,
			Message: "Duplicate lot skipped",
			Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Data: logrus.Fields{
				"attempts": 2,
				"error":    errors.New("duplicate"),
				"lot_id":   "L-1",
			},
		}

		out, err := formatter.Format(entry)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal(`2024-05-01T12:00:00Z WARNING Duplicate lot skipped lot_id="L-1" error="duplicate" attempts=2` + "\n"))
	})
})

var _ = Describe("New", func() {
	It("parses level and format", func() {
		logger, err := logging.New("debug", logging.FormatJSON)
		Expect(err).NotTo(HaveOccurred())
		Expect(logger.GetLevel()).To(Equal(logrus.DebugLevel))
		Expect(logger.Formatter).To(BeAssignableToTypeOf(&logrus.JSONFormatter{}))
	})

	It("defaults to info with the colored formatter", func() {
		logger, err := logging.New("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(logger.GetLevel()).To(Equal(logrus.InfoLevel))
		Expect(logger.Formatter).To(BeAssignableToTypeOf(&logging.ColoredJSONFormatter{}))
	})

	It("rejects unknown values", func() {
		_, err := logging.New("loud", "")
		Expect(err).To(HaveOccurred())
		_, err = logging.New("info", "xml")
		Expect(err).To(HaveOccurred())
	})
})
