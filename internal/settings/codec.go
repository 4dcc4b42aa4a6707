// Package settings persists typed configuration values into a YAML
// document. Each configuration type declares a Table of columns; the Codec
// turns the bound fields into nodes and back, encrypting secrets with an
// application-wide key.
package settings

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/cryptox"
	"github.com/ustczzh/AlephNote/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	attrType  = "type"
	attrValue = "value"
)

// ProviderResolver answers whether a provider ID is registered and which
// provider to fall back to.
type ProviderResolver interface {
	Has(id uuid.UUID) bool
	DefaultID() uuid.UUID
}

// FontLookup reports whether a font family is installed.
type FontLookup func(name string) bool

// Codec encodes and decodes bound fields.
//
// Providers is consulted for ProviderReference fields and Fonts for
// FontName fields; both are optional.
type Codec struct {
	secret    []byte
	Providers ProviderResolver
	Fonts     FontLookup
	log       logging.Logger
}

func NewCodec(secret []byte, providers ProviderResolver, log logging.Logger) *Codec {
	return &Codec{secret: secret, Providers: providers, log: log}
}

// Encode renders fields as a mapping node of
//
//	Name: {type: Kind, value: "..."}
//
// entries in field order.
func (c *Codec) Encode(ctx context.Context, fields []Field) (*yaml.Node, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		v, err := c.encodeValue(f)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
		entry := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
			scalar(attrType), scalar(f.Kind.String()),
			scalar(attrValue), scalar(v),
		}}
		root.Content = append(root.Content, scalar(f.Name), entry)
	}
	return root, nil
}

// Decode assigns values found in node to fields. Missing or malformed
// entries leave the current value in place; Decode never fails.
func (c *Codec) Decode(ctx context.Context, node *yaml.Node, fields []Field) {
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node == nil || node.Kind != yaml.MappingNode {
		c.log.Debug(ctx, "settings node missing or not a mapping, keeping defaults")
		return
	}

	entries := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		entries[node.Content[i].Value] = node.Content[i+1]
	}

	for _, f := range fields {
		entry, ok := entries[f.Name]
		if !ok {
			continue
		}
		typ, value, ok := readEntry(entry)
		if !ok {
			c.log.Debug(ctx, "malformed settings entry, keeping current value", "field", f.Name)
			continue
		}
		if typ != "" && typ != f.Kind.String() {
			c.log.Debug(ctx, "settings entry type mismatch, keeping current value",
				"field", f.Name, "stored", typ, "declared", f.Kind.String())
			continue
		}
		c.decodeValue(ctx, f, value)
	}
}

func (c *Codec) encodeValue(f Field) (string, error) {
	switch f.Kind {
	case EncryptedString:
		plain := *f.Ptr.(*string)
		if strings.TrimSpace(plain) == "" {
			return "", nil
		}
		env, err := cryptox.EncryptWithPassword([]byte(plain), c.secret)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(env), nil
	case ProviderReference:
		return "{" + f.Ptr.(*uuid.UUID).String() + "}", nil
	default:
		return FormatValue(f)
	}
}

func (c *Codec) decodeValue(ctx context.Context, f Field, value string) {
	switch f.Kind {
	case EncryptedString:
		*f.Ptr.(*string) = c.decrypt(ctx, f.Name, value)
	case FontName:
		if c.Fonts != nil && !c.Fonts(value) {
			c.log.Debug(ctx, "font not installed, keeping current value", "field", f.Name, "font", value)
			return
		}
		*f.Ptr.(*string) = value
	case ProviderReference:
		*f.Ptr.(*uuid.UUID) = c.resolveProvider(ctx, f, value)
	default:
		if err := ParseValue(f, value); err != nil {
			c.log.Debug(ctx, "cannot parse settings value, keeping current value", "field", f.Name, "error", err)
		}
	}
}

// decrypt never fails: unreadable secrets come back empty so the rest of
// the document still loads.
func (c *Codec) decrypt(ctx context.Context, name, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	env, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		c.log.Warn(ctx, "encrypted setting is not valid base64, clearing it", "field", name, "error", err)
		return ""
	}
	plain, err := cryptox.DecryptWithPassword(env, c.secret)
	if err != nil {
		c.log.Warn(ctx, "cannot decrypt setting, clearing it", "field", name, "error", err)
		return ""
	}
	defer common.WipeByteArray(plain)
	return string(plain)
}

func (c *Codec) resolveProvider(ctx context.Context, f Field, value string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if c.Providers == nil {
		if err != nil {
			return *f.Ptr.(*uuid.UUID)
		}
		return id
	}
	if err != nil || !c.Providers.Has(id) {
		c.log.Warn(ctx, "unknown note provider, using default", "field", f.Name, "value", value)
		return c.Providers.DefaultID()
	}
	return id
}

func readEntry(n *yaml.Node) (typ, value string, ok bool) {
	if n.Kind != yaml.MappingNode {
		return "", "", false
	}
	found := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			continue
		}
		switch k.Value {
		case attrType:
			typ = v.Value
		case attrValue:
			value = v.Value
			found = true
		}
	}
	return typ, value, found
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// FormatValue renders a non-secret field as text. EncryptedString fields
// are rendered in clear; callers must not persist that output.
func FormatValue(f Field) (string, error) {
	switch f.Kind {
	case Integer:
		return strconv.Itoa(*f.Ptr.(*int)), nil
	case NullableInteger:
		p := *f.Ptr.(**int)
		if p == nil {
			return "", nil
		}
		return strconv.Itoa(*p), nil
	case Boolean:
		return strconv.FormatBool(*f.Ptr.(*bool)), nil
	case Identifier, ProviderReference:
		return f.Ptr.(*uuid.UUID).String(), nil
	case EncryptedString, String, FontName:
		return *f.Ptr.(*string), nil
	case Enumeration:
		b, err := f.Ptr.(Enum).MarshalText()
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrSerialization, err)
		}
		return string(b), nil
	default:
		panic(fmt.Sprintf("settings: field %q has unsupported kind %s", f.Name, f.Kind))
	}
}

// ParseValue assigns text to f. On error f is unchanged.
func ParseValue(f Field, value string) error {
	switch f.Kind {
	case Integer:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*f.Ptr.(*int) = n
	case NullableInteger:
		if strings.TrimSpace(value) == "" {
			*f.Ptr.(**int) = nil
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*f.Ptr.(**int) = &n
	case Boolean:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*f.Ptr.(*bool) = b
	case Identifier, ProviderReference:
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		*f.Ptr.(*uuid.UUID) = id
	case EncryptedString, String, FontName:
		*f.Ptr.(*string) = value
	case Enumeration:
		return f.Ptr.(Enum).UnmarshalText([]byte(value))
	default:
		panic(fmt.Sprintf("settings: field %q has unsupported kind %s", f.Name, f.Kind))
	}
	return nil
}
