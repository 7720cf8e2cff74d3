package scripts

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/url"
	"slices"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/Shopify/goluago/util"
)

// registerSubLibraries attaches the helper tables to an already-registered
// netbox library: netbox.crypto, netbox.encoding, netbox.random, and
// netbox.strings. Scripts call everything with the colon syntax, so
// arguments start at stack index 2.
func registerSubLibraries(l *lua.State) {
	l.Global("netbox")
	if l.IsNil(-1) {
		l.Pop(1)
		return
	}

	register := func(name string, funcs []lua.RegistryFunction) {
		lua.NewLibrary(l, funcs)
		l.SetField(-2, name)
	}

	register("crypto", cryptoLibrary())
	register("random", randomLibrary())
	register("strings", stringsLibrary())
	registerEncodingLibrary(l)

	l.Pop(1)
}

// cryptoLibrary provides hashing under `netbox.crypto`. hmac_sha256 matches
// the signature scheme used on webhook deliveries, so a script can verify
// what a receiver will see.
func cryptoLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// sha256 calculates the SHA256 hash of a given string.
		//
		// @param input string The string to hash.
		// @return string The SHA256 hash encoded as a hexadecimal string.
		{Name: "sha256", Function: func(l *lua.State) int {
			inputString := lua.CheckString(l, 2)

			hash := sha256.Sum256([]byte(inputString))
			l.PushString(hex.EncodeToString(hash[:]))
			return 1
		}},
		// hmac_sha256 calculates the HMAC-SHA256 of a message with a given secret.
		//
		// @param secret string The secret key.
		// @param message string The message to authenticate.
		// @return string The HMAC-SHA256 encoded as a hexadecimal string.
		{Name: "hmac_sha256", Function: func(l *lua.State) int {
			secret := lua.CheckString(l, 2)
			message := lua.CheckString(l, 3)

			mac := hmac.New(sha256.New, []byte(secret))
			mac.Write([]byte(message))

			l.PushString(hex.EncodeToString(mac.Sum(nil)))
			return 1
		}},
	}
}

// randomLibrary provides random data generation under `netbox.random`.
func randomLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// int returns a random integer in a given range.
		//
		// @param min int The minimum value of the range.
		// @param max int The maximum value of the range.
		// @return int A random integer between min and max (inclusive).
		{Name: "int", Function: func(l *lua.State) int {
			min := lua.CheckInteger(l, 2)
			max := lua.CheckInteger(l, 3)

			if min > max {
				lua.ArgumentError(l, 2, "minimum value cannot be greater than max")
				return 0
			}

			diff := new(big.Int).Sub(big.NewInt(int64(max)), big.NewInt(int64(min)))
			diff.Add(diff, big.NewInt(1))

			n, err := rand.Int(rand.Reader, diff)
			if err != nil {
				lua.Errorf(l, "generating random int: %s", err.Error())
				return 0
			}

			l.PushInteger(int(n.Int64()) + min)
			return 1
		}},
		// string returns a random string of a given length, using an optional charset.
		//
		// @param length int The length of the random string.
		// @param charset string (optional) Defaults to alphanumeric characters.
		// @return string The generated random string.
		{Name: "string", Function: func(l *lua.State) int {
			length := lua.CheckInteger(l, 2)
			charset := lua.OptString(l, 3, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

			if length <= 0 {
				l.PushString("")
				return 1
			}
			if len(charset) == 0 {
				lua.ArgumentError(l, 3, "charset cannot be empty")
				return 0
			}

			result := make([]byte, length)
			charsetLen := big.NewInt(int64(len(charset)))
			for i := range length {
				num, err := rand.Int(rand.Reader, charsetLen)
				if err != nil {
					lua.Errorf(l, "generating random int: %s", err.Error())
					return 0
				}
				result[i] = charset[num.Int64()]
			}

			l.PushString(string(result))
			return 1
		}},
	}
}

// stringsLibrary provides string manipulation under `netbox.strings`.
func stringsLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// upper converts a string to uppercase.
		{Name: "upper", Function: func(l *lua.State) int {
			l.PushString(strings.ToUpper(lua.CheckString(l, 2)))
			return 1
		}},
		// lower converts a string to lowercase.
		{Name: "lower", Function: func(l *lua.State) int {
			l.PushString(strings.ToLower(lua.CheckString(l, 2)))
			return 1
		}},
		// reverse reverses a string.
		{Name: "reverse", Function: func(l *lua.State) int {
			runes := []rune(lua.CheckString(l, 2))
			slices.Reverse(runes)
			l.PushString(string(runes))
			return 1
		}},
		// contains checks if a string contains a substring.
		{Name: "contains", Function: func(l *lua.State) int {
			l.PushBoolean(strings.Contains(lua.CheckString(l, 2), lua.CheckString(l, 3)))
			return 1
		}},
		// has_prefix checks if a string starts with a prefix.
		{Name: "has_prefix", Function: func(l *lua.State) int {
			l.PushBoolean(strings.HasPrefix(lua.CheckString(l, 2), lua.CheckString(l, 3)))
			return 1
		}},
		// has_suffix checks if a string ends with a suffix.
		{Name: "has_suffix", Function: func(l *lua.State) int {
			l.PushBoolean(strings.HasSuffix(lua.CheckString(l, 2), lua.CheckString(l, 3)))
			return 1
		}},
		// replace replaces occurrences of a substring with another string.
		//
		// @param input string The original string.
		// @param target string The substring to replace.
		// @param replacement string The string to replace with.
		// @param n number (optional) The maximum number of replacements. -1 means all.
		{Name: "replace", Function: func(l *lua.State) int {
			inputString := lua.CheckString(l, 2)
			target := lua.CheckString(l, 3)
			replacement := lua.OptString(l, 4, "")
			occurrences := lua.OptInteger(l, 5, -1)

			l.PushString(strings.Replace(inputString, target, replacement, occurrences))
			return 1
		}},
		// split splits a string by a separator and returns a table of parts.
		{Name: "split", Function: func(l *lua.State) int {
			parts := strings.Split(lua.CheckString(l, 2), lua.CheckString(l, 3))
			util.DeepPush(l, parts)
			return 1
		}},
		// trim removes leading and trailing whitespace from a string.
		{Name: "trim", Function: func(l *lua.State) int {
			l.PushString(strings.TrimSpace(lua.CheckString(l, 2)))
			return 1
		}},
	}
}

// registerEncodingLibrary attaches `netbox.encoding` with base64, hex, url,
// and json sub-tables. The parent library table is expected at the top of
// the stack.
func registerEncodingLibrary(l *lua.State) {
	l.NewTable()

	register := func(name string, funcs []lua.RegistryFunction) {
		lua.NewLibrary(l, funcs)
		l.SetField(-2, name)
	}

	register("base64", base64Library())
	register("hex", hexLibrary())
	register("url", urlEncodeLibrary())
	register("json", jsonLibrary())

	l.SetField(-2, "encoding")
}

func base64Library() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// encode encodes a string using base64.
		{Name: "encode", Function: func(l *lua.State) int {
			l.PushString(base64.StdEncoding.EncodeToString([]byte(lua.CheckString(l, 2))))
			return 1
		}},
		// decode decodes a base64 encoded string.
		{Name: "decode", Function: func(l *lua.State) int {
			encodedString := lua.CheckString(l, 2)

			decoded, err := base64.StdEncoding.DecodeString(encodedString)
			if err != nil {
				lua.Errorf(l, "decoding base64 %s: %s", encodedString, err.Error())
				return 0
			}
			l.PushString(string(decoded))
			return 1
		}},
	}
}

func hexLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// encode encodes a string using hexadecimal.
		{Name: "encode", Function: func(l *lua.State) int {
			l.PushString(hex.EncodeToString([]byte(lua.CheckString(l, 2))))
			return 1
		}},
		// decode decodes a hexadecimal encoded string.
		{Name: "decode", Function: func(l *lua.State) int {
			encodedString := lua.CheckString(l, 2)

			decoded, err := hex.DecodeString(encodedString)
			if err != nil {
				lua.Errorf(l, "decoding hex %s: %s", encodedString, err.Error())
				return 0
			}
			l.PushString(string(decoded))
			return 1
		}},
	}
}

func urlEncodeLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// encode encodes a string for use in a URL query.
		{Name: "encode", Function: func(l *lua.State) int {
			l.PushString(url.QueryEscape(lua.CheckString(l, 2)))
			return 1
		}},
		// decode decodes a URL encoded string.
		{Name: "decode", Function: func(l *lua.State) int {
			encodedString := lua.CheckString(l, 2)

			decoded, err := url.QueryUnescape(encodedString)
			if err != nil {
				lua.Errorf(l, "decoding url %s: %s", encodedString, err.Error())
				return 0
			}
			l.PushString(decoded)
			return 1
		}},
	}
}

func jsonLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// encode encodes a Lua table to a JSON string.
		//
		// @param value table The Lua table to encode.
		// @param indent number (optional) Spaces of indentation.
		// @return string The JSON encoded string.
		{Name: "encode", Function: func(l *lua.State) int {
			value, err := util.PullTable(l, 2)
			if err != nil {
				lua.Errorf(l, "reading table: %s", err.Error())
				return 0
			}
			indent := lua.OptInteger(l, 3, 0)

			var raw []byte
			if indent > 0 {
				raw, err = json.MarshalIndent(value, "", strings.Repeat(" ", indent))
			} else {
				raw, err = json.Marshal(value)
			}
			if err != nil {
				lua.Errorf(l, "marshalling json: %s", err.Error())
				return 0
			}

			l.PushString(string(raw))
			return 1
		}},
		// decode decodes a JSON string to a Lua value.
		{Name: "decode", Function: func(l *lua.State) int {
			inputString := lua.CheckString(l, 2)

			var decoded any
			if err := json.Unmarshal([]byte(inputString), &decoded); err != nil {
				lua.Errorf(l, "unmarshalling json: %s", err.Error())
				return 0
			}

			util.DeepPush(l, decoded)
			return 1
		}},
	}
}
