package transport_test

import (
	"context"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/transport"
)

var _ = Describe("SignedTokenSource", func() {
	var (
		ctx    context.Context
		now    time.Time
		source *transport.SignedTokenSource
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Now().Truncate(time.Second)
		source = transport.NewSignedTokenSource("app-1", "s3cret", time.Hour)
		source.SetClock(func() time.Time { return now })
	})

	It("mints a token identifying the app", func() {
		token, err := source.Token(ctx)
		Expect(err).NotTo(HaveOccurred())

		claims := &jwt.RegisteredClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return []byte("s3cret"), nil
		}, jwt.WithAudience("connector"), jwt.WithTimeFunc(func() time.Time { return now }))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Valid).To(BeTrue())
		Expect(claims.Issuer).To(Equal("app-1"))
		Expect(claims.ExpiresAt.Time).To(BeTemporally("==", now.Add(time.Hour)))
	})

	It("reuses the token until shortly before it expires", func() {
		first, err := source.Token(ctx)
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(30 * time.Minute)
		second, err := source.Token(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))

		now = now.Add(26 * time.Minute)
		third, err := source.Token(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(third).NotTo(Equal(first))
	})

	It("refuses to mint without a secret", func() {
		_, err := transport.NewSignedTokenSource("app-1", "", time.Hour).Token(ctx)
		Expect(err).To(HaveOccurred())
	})
})
