package hk_test

import (
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/hk"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Housekeeper", func() {
	It("fires a registered job roughly every interval", func() {
		calls := 0
		hk.DefaultHK.Reg("test-job", 50*time.Millisecond, func() time.Duration {
			calls++
			return 0
		})
		Eventually(func() int { return calls }, 500*time.Millisecond, 10*time.Millisecond).Should(BeNumerically(">=", 2))
		hk.DefaultHK.Unreg("test-job")
	})
})
