package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name        string
		data        string
		wantKey     string
		wantPayload string
	}{
		{"unique with payload", "\\fsub_real|12345", "sub_real", "12345"},
		{"unique only", "\\frv_ok", "rv_ok", ""},
		{"no prefix", "rv_no|9", "rv_no", "9"},
		{"empty", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(&tele.Callback{Data: tc.data})
			if key != tc.wantKey || payload != tc.wantPayload {
				t.Errorf("got (%q, %q), want (%q, %q)", key, payload, tc.wantKey, tc.wantPayload)
			}
		})
	}

	if key, payload := ParseCallbackData(nil); key != "" || payload != "" {
		t.Errorf("nil callback must parse empty, got (%q, %q)", key, payload)
	}
}
