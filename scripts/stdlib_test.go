package scripts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"
	"github.com/rs/zerolog"

	"github.com/sashashura/netbox/domain"
)

func sha256Helper(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

func hmacHelper(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// runSnippet executes a Lua chunk in a fresh script state and returns the
// value it left on top of the stack.
func runSnippet(t *testing.T, code string) any {
	t.Helper()

	engine := NewEngine(zerolog.Nop(), 0)
	script := &domain.Script{
		Name:        "stdlib-test",
		Kind:        domain.ScriptHook,
		ObjectKinds: []domain.ObjectKind{domain.KindSite},
		Enabled:     true,
		Source:      code,
	}
	change := &domain.ObjectChange{ObjectKind: domain.KindSite, Action: domain.ActionCreate}

	l := engine.newState(script, change)
	if err := lua.DoString(l, code); err != nil {
		t.Fatalf("running snippet: %v", err)
	}

	switch {
	case l.IsBoolean(-1):
		return l.ToBoolean(-1)
	case l.TypeOf(-1) == lua.TypeTable:
		value, err := util.PullTable(l, l.Top())
		if err != nil {
			t.Fatalf("pulling table: %v", err)
		}
		return value
	case l.TypeOf(-1) == lua.TypeString:
		s, _ := l.ToString(-1)
		return s
	case l.IsNumber(-1):
		n, _ := l.ToNumber(-1)
		return n
	default:
		return nil
	}
}

func TestSubLibraries(t *testing.T) {
	tests := []struct {
		name          string
		luaCode       string
		validatorFunc func(t *testing.T, got any)
	}{
		{
			name:    "crypto:sha256 should return the correct hash",
			luaCode: `return netbox.crypto:sha256("netbox")`,
			validatorFunc: func(t *testing.T, got any) {
				want := sha256Helper("netbox")
				if got != want {
					t.Errorf("\nwanted:\n%s\ngot:\n%v", want, got)
				}
			},
		},
		{
			name:    "crypto:hmac_sha256 should match the webhook signature scheme",
			luaCode: `return netbox.crypto:hmac_sha256("secret", "payload")`,
			validatorFunc: func(t *testing.T, got any) {
				want := hmacHelper("secret", "payload")
				if got != want {
					t.Errorf("\nwanted:\n%s\ngot:\n%v", want, got)
				}
			},
		},
		{
			name:    "strings:upper should uppercase",
			luaCode: `return netbox.strings:upper("rack")`,
			validatorFunc: func(t *testing.T, got any) {
				if got != "RACK" {
					t.Errorf("\nwanted:\nRACK\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "strings:split should expose the first part",
			luaCode: `local parts = netbox.strings:split("dcim.site", ".") return parts[1]`,
			validatorFunc: func(t *testing.T, got any) {
				if got != "dcim" {
					t.Errorf("\nwanted:\ndcim\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "strings:has_prefix should match object kinds",
			luaCode: `return netbox.strings:has_prefix(kind, "dcim.")`,
			validatorFunc: func(t *testing.T, got any) {
				if got != true {
					t.Errorf("\nwanted:\ntrue\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "encoding.base64 should round trip",
			luaCode: `return netbox.encoding.base64:decode(netbox.encoding.base64:encode("10.0.0.0/24"))`,
			validatorFunc: func(t *testing.T, got any) {
				if got != "10.0.0.0/24" {
					t.Errorf("\nwanted:\n10.0.0.0/24\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "encoding.hex should encode",
			luaCode: `return netbox.encoding.hex:encode("ab")`,
			validatorFunc: func(t *testing.T, got any) {
				if got != "6162" {
					t.Errorf("\nwanted:\n6162\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "encoding.url should escape query values",
			luaCode: `return netbox.encoding.url:encode("rack 42")`,
			validatorFunc: func(t *testing.T, got any) {
				if got != "rack+42" {
					t.Errorf("\nwanted:\nrack+42\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "encoding.json should decode into a table",
			luaCode: `local site = netbox.encoding.json:decode('{"slug": "ashburn"}') return site.slug`,
			validatorFunc: func(t *testing.T, got any) {
				if got != "ashburn" {
					t.Errorf("\nwanted:\nashburn\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "encoding.json should encode a table",
			luaCode: `return netbox.encoding.json:encode({slug = "ashburn"})`,
			validatorFunc: func(t *testing.T, got any) {
				if got != `{"slug":"ashburn"}` {
					t.Errorf("\nwanted:\n{\"slug\":\"ashburn\"}\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "random:int should stay in range",
			luaCode: `return netbox.random:int(1, 10)`,
			validatorFunc: func(t *testing.T, got any) {
				n, ok := got.(float64)
				if !ok || n < 1 || n > 10 {
					t.Errorf("\nwanted:\na number between 1 and 10\ngot:\n%v", got)
				}
			},
		},
		{
			name:    "random:string should honor length and charset",
			luaCode: `return netbox.random:string(8, "ab")`,
			validatorFunc: func(t *testing.T, got any) {
				s, ok := got.(string)
				if !ok || len(s) != 8 || strings.Trim(s, "ab") != "" {
					t.Errorf("\nwanted:\n8 chars of a/b\ngot:\n%v", got)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.validatorFunc(t, runSnippet(t, test.luaCode))
		})
	}
}
