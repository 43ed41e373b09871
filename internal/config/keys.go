package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kList
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "TALKSCOPE_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "TALKSCOPE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_upload_bytes", typ: kInt, env: "TALKSCOPE_SERVER_MAX_UPLOAD_BYTES",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxUploadBytes = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxUploadBytes },
	},
	{
		key: "server.max_connections", typ: kInt, env: "TALKSCOPE_SERVER_MAX_CONNECTIONS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConnections = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConnections },
	},
	{
		key: "server.cors_origins", typ: kList, env: "TALKSCOPE_SERVER_CORS_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.CORSOrigins = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Server.CORSOrigins, ",") },
	},
	{
		key: "llm.provider", typ: kString, env: "TALKSCOPE_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = strings.ToLower(v.(string)) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.base_url", typ: kString, env: "TALKSCOPE_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.api_key", typ: kString, env: "TALKSCOPE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.timeout", typ: kDuration, env: "TALKSCOPE_LLM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.LLM.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.LLM.Timeout },
	},
	{
		key: "analysis.models", typ: kList, env: "TALKSCOPE_ANALYSIS_MODELS",
		apply:   func(cfg *Config, v any) { cfg.Analysis.Models = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Analysis.Models, ",") },
	},
	{
		key: "analysis.strict_schema", typ: kBool, env: "TALKSCOPE_ANALYSIS_STRICT_SCHEMA",
		apply:   func(cfg *Config, v any) { cfg.Analysis.StrictSchema = v.(bool) },
		extract: func(cfg Config) any { return cfg.Analysis.StrictSchema },
	},
	{
		key: "analysis.structured_output", typ: kBool, env: "TALKSCOPE_ANALYSIS_STRUCTURED_OUTPUT",
		apply:   func(cfg *Config, v any) { cfg.Analysis.StructuredOutput = v.(bool) },
		extract: func(cfg Config) any { return cfg.Analysis.StructuredOutput },
	},
	{
		key: "log.level", typ: kString, env: "TALKSCOPE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parseValue converts a raw string into the Go type a key's apply func
// expects.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kString:
		return raw, nil
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kDuration:
		return time.ParseDuration(raw)
	case kList:
		list := splitList(raw)
		if len(list) == 0 {
			return nil, fmt.Errorf("empty list")
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported key type %d", typ)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := strings.TrimSpace(os.Getenv(s.env))
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
