package middleware

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

type contextKey string

// LanguageKey is the context key for the negotiated admin language.
const LanguageKey = contextKey("language")

// WithLanguage stores the admin language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, LanguageKey, tag)
}

// GetLanguage extracts the admin language from ctx.
// Returns English if no language is set.
func GetLanguage(ctx context.Context) language.Tag {
	if ctx == nil {
		return language.English
	}
	if tag, ok := ctx.Value(LanguageKey).(language.Tag); ok {
		return tag
	}
	return language.English
}

// PreferredLanguage picks the best supported language from the
// Accept-Language header, falling back to def.
func PreferredLanguage(r *http.Request, supported []language.Tag, def language.Tag) language.Tag {
	if len(supported) == 0 {
		return def
	}
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return def
	}
	matcher := language.NewMatcher(supported)
	_, idx, conf := matcher.Match(parseAccept(accept)...)
	if conf == language.No {
		return def
	}
	return supported[idx]
}

func parseAccept(header string) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	return tags
}
