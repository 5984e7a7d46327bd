// Package cancellation implements subscription cancellation and the
// contact-sales quote request for the club tier.
//
// Cancellation previews branch on what the account actually holds: an
// in-trial cancellation warns that no charge will occur (and that the free
// match is still unused, when it is), a paid one explains that access runs
// until the end of the current period. The preview reads the strict
// snapshot so the wording never lies about billing consequences.
//
// The quote workflow is intentionally incapable of charging anyone: it only
// sees the quote endpoint and acknowledges locally once the lead is sent.
package cancellation
