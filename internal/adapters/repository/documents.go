package repository

import (
	"math"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/okian/matchwise/internal/domain/model"
)

// Field names shared with the seeding and upsert tooling.
const (
	fieldNickname     = "nickname"
	fieldSocialID     = "linkedin_id"
	fieldIntroduction = "introduction"
	fieldProfileText  = "generated_profile_text"
	fieldImageKey     = "profile_image_key"
	fieldEmbedding    = "embedding"

	fieldUsername        = "username"
	fieldTemplateSocial  = "linkedin"
	fieldTemplateText    = "profile_text"
	fieldTemplateTextOld = "profileIntro"
	fieldDummyIntro      = "dummy_intro"
	fieldDummyIntroOld   = "dammy_data"
)

// Wrong-typed fields read as zero values.

func str(doc Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func firstStr(doc Document, keys ...string) string {
	for _, k := range keys {
		if s := str(doc, k); s != "" {
			return s
		}
	}
	return ""
}

func integer(doc Document, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// floats reads a numeric vector. Any non-numeric element makes the whole
// vector unusable.
func floats(doc Document, key string) []float64 {
	switch v := doc[key].(type) {
	case []float64:
		return append([]float64(nil), v...)
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out
	case []any:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			switch f := e.(type) {
			case float64:
				out = append(out, f)
			case int:
				out = append(out, float64(f))
			case json.Number:
				x, err := f.Float64()
				if err != nil {
					return nil
				}
				out = append(out, x)
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

// ProfileFromDocument decodes a live profile.
func ProfileFromDocument(id string, doc Document) model.Profile {
	return model.Profile{
		ID:           id,
		Nickname:     str(doc, fieldNickname),
		SocialID:     str(doc, fieldSocialID),
		Introduction: str(doc, fieldIntroduction),
		ProfileText:  str(doc, fieldProfileText),
		ImageKey:     integer(doc, fieldImageKey),
		Embedding:    floats(doc, fieldEmbedding),
	}
}

// ProfileDocument encodes a live profile.
func ProfileDocument(p model.Profile) Document {
	doc := Document{
		fieldNickname:     p.Nickname,
		fieldSocialID:     p.SocialID,
		fieldIntroduction: p.Introduction,
		fieldProfileText:  p.ProfileText,
		fieldImageKey:     p.ImageKey,
	}
	if len(p.Embedding) > 0 {
		doc[fieldEmbedding] = p.Embedding
	}
	return doc
}

// TemplateFromDocument decodes a template, honoring legacy field names.
func TemplateFromDocument(id string, doc Document) model.TemplateProfile {
	return model.TemplateProfile{
		ID:          id,
		Username:    str(doc, fieldUsername),
		SocialID:    str(doc, fieldTemplateSocial),
		ProfileText: firstStr(doc, fieldTemplateText, fieldTemplateTextOld),
		DummyIntro:  firstStr(doc, fieldDummyIntro, fieldDummyIntroOld),
		ImageKey:    integer(doc, fieldImageKey),
		Embedding:   floats(doc, fieldEmbedding),
	}
}

// TemplateDocument encodes a template.
func TemplateDocument(t model.TemplateProfile) Document {
	doc := Document{
		fieldUsername:       t.Username,
		fieldTemplateSocial: t.SocialID,
		fieldTemplateText:   t.ProfileText,
		fieldDummyIntro:     t.DummyIntro,
	}
	if t.ImageKey > 0 {
		doc[fieldImageKey] = t.ImageKey
	}
	if len(t.Embedding) > 0 {
		doc[fieldEmbedding] = t.Embedding
	}
	return doc
}

// toDocument converts a tagged struct into a document through its JSON form.
func toDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
