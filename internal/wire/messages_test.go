package wire

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"modelbridge/pkg/types"
)

func encodeTurns(t *testing.T, turns []types.ChatTurn) string {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(turns); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.String()
}

func TestParseMessages_RoundTrip(t *testing.T) {
	want := []types.ChatTurn{
		{Role: types.RoleSystem, Content: "You are terse."},
		{Role: types.RoleUser, Content: "Say \"hi\"\nthen stop."},
		{Role: types.RoleAssistant, Content: `path C:\tmp	tabbed`},
		{Role: types.RoleUser, Content: "é and ünïcode"},
	}
	got, err := ParseMessages(encodeTurns(t, want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got=%#v\nwant=%#v", got, want)
	}
}

func TestParseMessages_TolerantWhitespace(t *testing.T) {
	in := "  [ {\n \"role\" :  \"user\" ,\n\t\"content\":\"hello\"} ]  trailing junk"
	got, err := ParseMessages(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Role != types.RoleUser || got[0].Content != "hello" {
		t.Fatalf("unexpected turns: %#v", got)
	}
}

func TestParseMessages_EscapedQuoteDoesNotTerminate(t *testing.T) {
	in := `[{"role":"user","content":"a \"quoted\" word"},{"role":"assistant","content":"ok"}]`
	got, err := ParseMessages(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Content != `a "quoted" word` {
		t.Fatalf("content=%q", got[0].Content)
	}
}

func TestParseMessages_MissingArray(t *testing.T) {
	_, err := ParseMessages(`{"role":"user","content":"x"}`)
	if err == nil || !IsMalformedPayload(err) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestParseMessages_StopsAtMissingKey(t *testing.T) {
	in := `[{"role":"user","content":"one"},{"role":"assistant"}]`
	got, err := ParseMessages(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Content != "one" {
		t.Fatalf("expected the turns before the missing key, got %#v", got)
	}
}

func TestParseMessages_UnknownRoleIsFieldScoped(t *testing.T) {
	in := `[{"role":"user","content":"a"},{"role":"tool","content":"b"},{"role":"assistant","content":"c"}]`
	got, err := ParseMessages(in)
	if err == nil || !IsMalformedPayload(err) {
		t.Fatalf("expected malformed payload for unknown role, got %v", err)
	}
	if fields := MalformedFields(err); len(fields) != 1 || fields[0] != "messages[1].role" {
		t.Fatalf("fields=%v", fields)
	}
	if len(got) != 2 || got[0].Content != "a" || got[1].Content != "c" {
		t.Fatalf("valid turns should survive: %#v", got)
	}
}

func TestParseMessages_EmptyArray(t *testing.T) {
	got, err := ParseMessages("[]")
	if err != nil || len(got) != 0 {
		t.Fatalf("got %#v err=%v", got, err)
	}
}

func TestUnescape(t *testing.T) {
	cases := map[string]string{
		`plain`:        "plain",
		`a\nb`:         "a\nb",
		`say \"x\"`:    `say "x"`,
		`back\\slash`:  `back\slash`,
		`lit\\n`:       `lit\n`,
		`\u00e9 stays`: `\u00e9 stays`,
		`trailing\`:    `trailing\`,
	}
	for in, want := range cases {
		if got := unescape(in); got != want {
			t.Fatalf("unescape(%q)=%q want %q", in, got, want)
		}
	}
}
