package models

import (
	"errors"
	"fmt"
	"strings"
)

// TagType is a closed enumeration of quote categories.
type TagType string

const (
	TagFunny        TagType = "funny"
	TagWisdom       TagType = "wisdom"
	TagMotivational TagType = "motivational"
	TagLove         TagType = "love"
	TagLife         TagType = "life"
)

var ErrUnknownTag = errors.New("unknown tag")

var tagTypes = map[string]TagType{
	string(TagFunny):        TagFunny,
	string(TagWisdom):       TagWisdom,
	string(TagMotivational): TagMotivational,
	string(TagLove):         TagLove,
	string(TagLife):         TagLife,
}

func ParseTag(s string) (TagType, error) {
	t, ok := tagTypes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTag, s)
	}

	return t, nil
}

// ParseTags parses a comma-separated tag list as it appears in the
// ?tags= query parameter.
func ParseTags(s string) ([]TagType, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")

	tags := make([]TagType, 0, len(parts))
	for _, p := range parts {
		t, err := ParseTag(p)
		if err != nil {
			return nil, err
		}

		tags = append(tags, t)
	}

	return tags, nil
}

func ParseTagList(list []string) ([]TagType, error) {
	tags := make([]TagType, 0, len(list))
	for _, p := range list {
		t, err := ParseTag(p)
		if err != nil {
			return nil, err
		}

		tags = append(tags, t)
	}

	return tags, nil
}

func TagStrings(tags []TagType) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}

	return out
}
