package usecase

import (
	"fmt"
	"time"
)

const (
	ReferenceTag    = "SOCIALS"
	referenceLayout = "20060102150405"
)

// ReferenceGenerator builds human-traceable transaction references.
// References are advisory: two requests for the same account and plan in the
// same second produce the same string. The provider's transaction id, not
// the reference, is the idempotency key.
type ReferenceGenerator struct {
	clock Clock
}

func NewReferenceGenerator(clock Clock) *ReferenceGenerator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ReferenceGenerator{clock: clock}
}

// Generate formats SOCIALS-{account}-{plan}-{YYYYMMDDHHMMSS} using UTC.
func (g *ReferenceGenerator) Generate(accountID, planID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%s", ReferenceTag, accountID, planID, at.UTC().Format(referenceLayout))
}

// Next generates a reference for the current instant.
func (g *ReferenceGenerator) Next(accountID, planID string) string {
	return g.Generate(accountID, planID, g.clock.Now())
}
