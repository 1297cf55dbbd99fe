package config

import (
	"os"
	"regexp"

	"github.com/giantswarm/bench/internal/apperr"
)

// SecretResolver looks up a named secret from an OS keychain or
// equivalent credential store. Declared at the point of use: the real
// keychain integration is an external collaborator this package does
// not implement.
type SecretResolver interface {
	Resolve(name string) (string, error)
}

var placeholderPattern = regexp.MustCompile(`\$\{(env|secret):([^}]+)\}`)

// tokenMap records, for one interpolation pass, which resolved values
// came from which placeholder so re-tokenize can reverse it on save.
type tokenMap map[string]string // resolved value -> original placeholder

// interpolate replaces every "${env:X}"/"${secret:X}" placeholder in s.
// An env placeholder with no matching variable, or a secret placeholder
// the resolver fails to serve, is an error — interpolation never
// silently substitutes an empty string.
func interpolate(s string, secrets SecretResolver, tokens tokenMap) (string, error) {
	var firstErr error
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		groups := placeholderPattern.FindStringSubmatch(match)
		kind, name := groups[1], groups[2]

		var value string
		switch kind {
		case "env":
			v, ok := os.LookupEnv(name)
			if !ok {
				firstErr = apperr.Validationf("env."+name, "missing_env", "required environment variable %q is not set", name)
				return match
			}
			value = v
		case "secret":
			if secrets == nil {
				firstErr = apperr.New(apperr.Internal, "no_secret_resolver", "a \"${secret:"+name+"}\" placeholder was used but no secret resolver is configured")
				return match
			}
			v, err := secrets.Resolve(name)
			if err != nil {
				firstErr = apperr.Wrap(apperr.Unauthorized, "secret_lookup_failed", "could not resolve secret "+name, err)
				return match
			}
			value = v
		}
		if tokens != nil {
			tokens[value] = match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// detokenize reverses interpolate using tokens recorded during the most
// recent load, so resolved secret/env values never reach disk.
func detokenize(s string, tokens tokenMap) string {
	if placeholder, ok := tokens[s]; ok {
		return placeholder
	}
	return s
}
