package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/subgatebot/subgate/internal/content"
	"github.com/subgatebot/subgate/internal/review"
)

func textSub(t *testing.T) *content.Submission {
	t.Helper()
	return content.NewSubmission(42, "Ada <Lovelace>", []content.Part{
		{Kind: content.KindText, Text: "hello", Sequence: 1},
	})
}

func TestReviewCardText(t *testing.T) {
	sub := textSub(t)
	text := reviewCardText(sub)

	for _, want := range []string{
		"New submission",
		`tg://user?id=42`,
		"Ada &lt;Lovelace&gt;",
		"<b>Parts:</b> 1",
		"pending",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("card text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Ada <Lovelace>") {
		t.Error("owner name must be escaped")
	}
}

func TestSourceLabel(t *testing.T) {
	sub := textSub(t)
	if got := sourceLabel(sub); got != "with name" {
		t.Errorf("default label = %q", got)
	}

	sub.Anonymous = true
	if got := sourceLabel(sub); got != "anonymous" {
		t.Errorf("anonymous label = %q", got)
	}

	sub.Forwarded = true
	if got := sourceLabel(sub); got != "forwarded" {
		t.Errorf("forwarded label = %q", got)
	}

	sub.OriginTag = "Some <Channel>"
	if got := sourceLabel(sub); got != "forwarded from Some &lt;Channel&gt;" {
		t.Errorf("origin label = %q", got)
	}
}

func TestOutcomeCardText(t *testing.T) {
	sub := textSub(t)
	if err := sub.Resolve(content.StatusApproved, content.Decision{
		ReviewerID: 7, ReviewerName: "Rev", Note: "nice <one>",
	}); err != nil {
		t.Fatal(err)
	}

	out := review.Outcome{
		Sub:      sub,
		Status:   content.StatusApproved,
		PostLink: "https://t.me/chan/12",
	}
	text := outcomeCardText(out)
	for _, want := range []string{
		"Submission accepted",
		`tg://user?id=7`,
		"nice &lt;one&gt;",
		`href="https://t.me/chan/12"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("approved card missing %q:\n%s", want, text)
		}
	}

	out.PublishErr = errors.New("telegram: chat not found")
	text = outcomeCardText(out)
	if !strings.Contains(text, "publishing failed") {
		t.Errorf("publish failure must be surfaced:\n%s", text)
	}
	if !strings.Contains(text, "chat not found") {
		t.Errorf("publish error text must be included:\n%s", text)
	}
}

func TestOutcomeCardTextRejected(t *testing.T) {
	sub := textSub(t)
	if err := sub.Resolve(content.StatusRejected, content.Decision{
		ReviewerID: 7, ReviewerName: "Rev",
	}); err != nil {
		t.Fatal(err)
	}

	text := outcomeCardText(review.Outcome{Sub: sub, Status: content.StatusRejected})
	if !strings.Contains(text, "Submission rejected") {
		t.Errorf("rejected card wrong:\n%s", text)
	}
	if strings.Contains(text, "<b>Note:</b>") {
		t.Errorf("empty note must not render:\n%s", text)
	}
}
