// ABOUTME: Tests for payment-result link parsing
// ABOUTME: Table-driven over app-scheme and web variants

package deeplink

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    PaymentResult
		wantErr bool
	}{
		{name: "app success", raw: "fntc://payment-success?ref=pay_123", want: PaymentResult{Outcome: Success, Reference: "pay_123"}},
		{name: "app success triple slash", raw: "fntc:///payment-success?reference=pay_9", want: PaymentResult{Outcome: Success, Reference: "pay_9"}},
		{name: "app failure", raw: "fntc://payment-failure?reason=card_declined", want: PaymentResult{Outcome: Failure, Reason: "card_declined"}},
		{name: "web success", raw: "https://portal.fntc.net/billing/payment-success?ref=abc", want: PaymentResult{Outcome: Success, Reference: "abc"}},
		{name: "web failure no reason", raw: "http://localhost:5000/payment-failure", want: PaymentResult{Outcome: Failure}},
		{name: "unknown route", raw: "fntc://settings", wantErr: true},
		{name: "unknown scheme", raw: "ftp://payment-success", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPaymentResult_Message(t *testing.T) {
	tests := map[string]PaymentResult{
		"Payment received (reference r1).": {Outcome: Success, Reference: "r1"},
		"Payment received.":                {Outcome: Success},
		"Payment failed: card declined.":   {Outcome: Failure, Reason: "card_declined"},
		"Payment failed.":                  {Outcome: Failure},
	}
	for want, r := range tests {
		if got := r.Message(); got != want {
			t.Errorf("Message() = %q, want %q", got, want)
		}
	}
}
