package payments

// EventKind is the tagged union over provider webhook payloads. Provider
// event-type strings are mapped to a kind at the boundary; everything past
// the gateway dispatches on the kind, never on raw strings.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindPaymentSucceeded
	KindPaymentFailed
	KindChargeRefunded
	KindDisputeOpened
	KindDisputeClosed
)

const (
	DisputeLost = "lost"
	DisputeWon  = "won"
)

// ProviderEvent is a verified, provider-neutral webhook event.
type ProviderEvent struct {
	ID            string
	Provider      string
	Type          string
	Kind          EventKind
	PaymentID     string
	DisputeStatus string
	DisputeReason string
	Payload       []byte
}

// Intent is the client-side handle for a created payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Verifier checks a raw webhook body against its signature header and
// decodes it into a ProviderEvent. Verification failures are SignatureError;
// undecodable bodies are ValidationError. Both map to 400 and are never
// retried by the provider.
type Verifier interface {
	VerifyAndParse(payload []byte, signatureHeader string) (ProviderEvent, error)
}
