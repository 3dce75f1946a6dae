package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Defaults", func() {
	It("sets server port 8080 and host 127.0.0.1", func() {
		cfg := Defaults()
		Expect(cfg.Server.Port).To(Equal(8080))
		Expect(cfg.Server.Host).To(Equal("127.0.0.1"))
	})

	It("classifies the API namespace with nested webhook and cron prefixes", func() {
		cfg := Defaults()
		Expect(cfg.Routes.APIPrefixes).To(ContainElement("/api/"))
		Expect(cfg.Routes.WebhookPrefixes).To(ContainElement("/api/webhooks/"))
		Expect(cfg.Routes.CronPrefixes).To(ContainElement("/api/cron/"))
	})

	It("routes everything through the pipeline by default", func() {
		Expect(Defaults().Matchers).To(Equal([]string{"/"}))
	})

	It("uses the in-process rate limit backend", func() {
		Expect(Defaults().RateLimit.Backend).To(Equal("memory"))
	})
})

var _ = Describe("Load", func() {
	When("loading from a valid file", func() {
		It("overrides defaults with file values", func() {
			content := `
server:
  host: "0.0.0.0"
  port: 9090
  read_timeout: 10s
  write_timeout: 60s
security:
  allowed_hosts: ["app.example.com"]
ratelimit:
  requests_per_second: 5
  burst: 10
log:
  level: "debug"
  format: "text"
`
			path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
			Expect(os.WriteFile(path, []byte(content), 0644)).NotTo(HaveOccurred())

			cfg, err := Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Host).To(Equal("0.0.0.0"))
			Expect(cfg.Server.Port).To(Equal(9090))
			Expect(cfg.Server.WriteTimeout).To(Equal(60 * time.Second))
			Expect(cfg.Security.AllowedHosts).To(ConsistOf("app.example.com"))
			Expect(cfg.RateLimit.Burst).To(Equal(10))
			Expect(cfg.Log.Level).To(Equal("debug"))
		})
	})

	When("the file does not exist", func() {
		It("returns an error", func() {
			_, err := Load(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})

	When("environment variables are set", func() {
		It("overrides file values with env", func() {
			os.Setenv("EDGEGATE_PORT", "3000")
			os.Setenv("EDGEGATE_LOG_LEVEL", "debug")
			defer os.Unsetenv("EDGEGATE_PORT")
			defer os.Unsetenv("EDGEGATE_LOG_LEVEL")

			cfg, err := Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(3000))
			Expect(cfg.Log.Level).To(Equal("debug"))
		})
	})

	When("the cron secret variable is set", func() {
		It("resolves the secret at load time", func() {
			os.Setenv("CRON_SECRET", "topsecret")
			defer os.Unsetenv("CRON_SECRET")

			cfg, err := Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Security.CronSecret).To(Equal("topsecret"))
		})
	})
})
