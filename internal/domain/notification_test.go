package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStatusFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "valid lowercase", input: "sent", want: StatusSent},
		{name: "valid uppercase with spaces", input: " PENDING ", want: StatusPending},
		{name: "invalid", input: "queued", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStatusFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseStatusFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseStatusFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatusFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseChannelFromString(" Telegram ")
	if err != nil {
		t.Fatalf("ParseChannelFromString() unexpected error = %v", err)
	}
	if got != ChannelTelegram {
		t.Fatalf("ParseChannelFromString() = %s, want %s", got, ChannelTelegram)
	}

	_, err = ParseChannelFromString("fax")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseChannelFromString() error = %v, want ErrValidation", err)
	}
}

func TestLabelsFallBackToRawValue(t *testing.T) {
	t.Parallel()

	if got := StatusSent.Label(); got != "✅ Sent" {
		t.Fatalf("StatusSent.Label() = %q", got)
	}
	if got := ChannelEmail.Label(); got != "📧 Email" {
		t.Fatalf("ChannelEmail.Label() = %q", got)
	}
	if got := Status("archived").Label(); got != "archived" {
		t.Fatalf("unknown status label = %q, want verbatim", got)
	}
	if got := Channel("sms").Label(); got != "sms" {
		t.Fatalf("unknown channel label = %q, want verbatim", got)
	}
}

func TestNotificationTargetPrefersUserID(t *testing.T) {
	t.Parallel()

	var fromUserID Notification
	if err := json.Unmarshal([]byte(`{"id":"1","user_id":"u-1","recipient":"r-1"}`), &fromUserID); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if got := fromUserID.Target(); got != "u-1" {
		t.Fatalf("Target() = %q, want u-1", got)
	}

	var fromRecipient Notification
	if err := json.Unmarshal([]byte(`{"id":"2","recipient":"r-2"}`), &fromRecipient); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if got := fromRecipient.Target(); got != "r-2" {
		t.Fatalf("Target() = %q, want r-2", got)
	}
}

func TestNotificationCancellable(t *testing.T) {
	t.Parallel()

	for _, status := range []Status{StatusPending, StatusSent, StatusCancelled, StatusFailed, Status("other")} {
		n := Notification{Status: status}
		if got, want := n.Cancellable(), status == StatusPending; got != want {
			t.Fatalf("Cancellable() for %s = %v, want %v", status, got, want)
		}
	}
}
