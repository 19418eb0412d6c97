package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/config"
)

// setEnv sets key until the current test finishes.
func setEnv(key, value string) {
	previous, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, previous)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Load", func() {
	It("applies defaults", func() {
		for _, key := range []string{"APP_PORT", "KB_SCORE_THRESHOLD", "RECONCILE_INTERVAL_SECONDS", "TRANSPORT_TOKEN_TTL_MINUTES"} {
			setEnv(key, "")
		}

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.App.Port).To(Equal("3978"))
		Expect(cfg.KnowledgeBase.ScoreThreshold).To(BeNumerically("==", 50))
		Expect(cfg.Reconcile.Interval()).To(Equal(time.Minute))
		Expect(cfg.Transport.TokenTTL()).To(Equal(time.Hour))
	})

	It("reads overrides from the environment", func() {
		setEnv("APP_HOST", "127.0.0.1")
		setEnv("APP_PORT", "8080")
		setEnv("BOT_EXPERT_TEAM_ID", "19:experts@thread.skype")
		setEnv("RECONCILE_INTERVAL_SECONDS", "0")
		setEnv("KB_TIMEOUT_SECONDS", "3")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.App.Addr()).To(Equal("127.0.0.1:8080"))
		Expect(cfg.Bot.ExpertTeamID).To(Equal("19:experts@thread.skype"))
		Expect(cfg.Reconcile.Interval()).To(BeZero())
		Expect(cfg.KnowledgeBase.Timeout()).To(Equal(3 * time.Second))
	})

	It("rejects a malformed score threshold", func() {
		setEnv("KB_SCORE_THRESHOLD", "high")

		_, err := config.Load()
		Expect(err).To(MatchError(ContainSubstring("KB_SCORE_THRESHOLD")))
	})

	It("falls back on malformed integers", func() {
		setEnv("RECONCILE_BATCH_SIZE", "many")

		cfg, err := config.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Reconcile.BatchSize).To(Equal(20))
	})
})
