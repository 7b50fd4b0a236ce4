// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/simgw/internal/log"
	"github.com/rs/zerolog"
)

// LookupFunc resolves an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// env reads typed values from a lookup function and logs where each value
// came from. Sensitive keys (URLs may carry credentials) are never logged.
type env struct {
	lookup LookupFunc
	logger zerolog.Logger
}

func newEnv(lookup LookupFunc) env {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return env{lookup: lookup, logger: log.WithComponent("config")}
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "url") || strings.Contains(k, "password") || strings.Contains(k, "token")
}

// raw returns the first non-empty value among keys.
func (e env) raw(keys ...string) (string, string, bool) {
	for _, key := range keys {
		if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
			return key, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

func parseTyped[T any](e env, def T, parse func(string) (T, error), keys ...string) T {
	key, v, ok := e.raw(keys...)
	if !ok {
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		e.logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", def).
			Msg("invalid value in environment variable, using default")
		return def
	}
	evt := e.logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Str("value", v)
	}
	evt.Msg("using environment variable")
	return parsed
}

func (e env) String(def string, keys ...string) string {
	return parseTyped(e, def, func(s string) (string, error) { return s, nil }, keys...)
}

func (e env) Int(def int, keys ...string) int {
	return parseTyped(e, def, strconv.Atoi, keys...)
}

func (e env) Int64(def int64, keys ...string) int64 {
	return parseTyped(e, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }, keys...)
}

func (e env) Float(def float64, keys ...string) float64 {
	return parseTyped(e, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }, keys...)
}

func (e env) Duration(def time.Duration, keys ...string) time.Duration {
	return parseTyped(e, def, time.ParseDuration, keys...)
}

func (e env) Bool(def bool, keys ...string) bool {
	return parseTyped(e, def, parseBool, keys...)
}

// StringSlice splits a comma separated value and drops empty elements.
func (e env) StringSlice(def []string, keys ...string) []string {
	return parseTyped(e, def, func(s string) ([]string, error) {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}, keys...)
}

// parseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// ParseString reads a string from the process environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	return newEnv(nil).String(defaultValue, key)
}

// ParseInt reads an integer from the process environment or returns defaultValue.
func ParseInt(key string, defaultValue int) int {
	return newEnv(nil).Int(defaultValue, key)
}

// ParseBool reads a boolean from the process environment or returns defaultValue.
func ParseBool(key string, defaultValue bool) bool {
	return newEnv(nil).Bool(defaultValue, key)
}

// ParseDuration reads a Go duration ("5s") from the process environment or returns defaultValue.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return newEnv(nil).Duration(defaultValue, key)
}
