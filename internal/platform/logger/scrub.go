package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Participant identifiers are hashed; credentials are redacted; image
// payloads never reach the log.
var (
	redactKeys  = []string{"token", "authorization", "password", "secret", "api_key", "apikey", "credentials"}
	hashKeys    = []string{"user_id", "room_id", "client_id"}
	payloadKeys = []string{"image", "payload", "frame"}
)

type scrubConfig struct {
	enabled bool
	salt    string
}

var (
	scrubOnce sync.Once
	scrubCfg  scrubConfig
)

func loadScrubConfig() scrubConfig {
	scrubOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			scrubCfg.enabled = false
		default:
			scrubCfg.enabled = true
		}
		scrubCfg.salt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return scrubCfg
}

func scrub(kv []interface{}) []interface{} {
	cfg := loadScrubConfig()
	if len(kv) == 0 || !cfg.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			out = append(out, kv[i])
			break
		}
		key := stringify(kv[i])
		out = append(out, key, scrubValue(cfg, strings.ToLower(key), kv[i+1]))
	}
	return out
}

func scrubValue(cfg scrubConfig, key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case matchesAny(key, redactKeys):
		return "[REDACTED]"
	case matchesAny(key, hashKeys):
		return digest(cfg.salt, val)
	case matchesAny(key, payloadKeys):
		if s, ok := val.(string); ok {
			return fmt.Sprintf("[OMITTED %d bytes]", len(s))
		}
		return "[OMITTED]"
	}
	if m, ok := val.(map[string]interface{}); ok {
		clean := make(map[string]interface{}, len(m))
		for k, v := range m {
			clean[k] = scrubValue(cfg, strings.ToLower(k), v)
		}
		return clean
	}
	return val
}

func matchesAny(key string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(key, n) {
			return true
		}
	}
	return false
}

func digest(salt string, val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
