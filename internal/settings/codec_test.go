package settings

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Port     int
	Limit    *int
	UseSSL   bool
	Account  uuid.UUID
	Password string
	Host     string
	Sorting  models.SortMode
	Font     string
	Provider uuid.UUID
}

var sampleTable = Table[sample]{
	{Name: "Port", Kind: Integer, Ref: func(s *sample) any { return &s.Port }},
	{Name: "Limit", Kind: NullableInteger, Ref: func(s *sample) any { return &s.Limit }},
	{Name: "UseSSL", Kind: Boolean, Ref: func(s *sample) any { return &s.UseSSL }},
	{Name: "Account", Kind: Identifier, Ref: func(s *sample) any { return &s.Account }},
	{Name: "Password", Kind: EncryptedString, Ref: func(s *sample) any { return &s.Password }},
	{Name: "Host", Kind: String, Ref: func(s *sample) any { return &s.Host }},
	{Name: "Sorting", Kind: Enumeration, Ref: func(s *sample) any { return &s.Sorting }},
	{Name: "Font", Kind: FontName, Ref: func(s *sample) any { return &s.Font }},
	{Name: "Provider", Kind: ProviderReference, Ref: func(s *sample) any { return &s.Provider }},
}

type fakeResolver struct {
	known map[uuid.UUID]bool
	def   uuid.UUID
}

func (f fakeResolver) Has(id uuid.UUID) bool { return f.known[id] }
func (f fakeResolver) DefaultID() uuid.UUID  { return f.def }

var (
	defaultProvider = uuid.MustParse("37de6de1-26b0-41f5-b252-5e625d9ecfa3")
	otherProvider   = uuid.MustParse("4c4e3e8a-3d2c-4f0e-9a55-0d1b6a3e7c11")
)

func newTestCodec(secret string) *Codec {
	c := NewCodec([]byte(secret), fakeResolver{
		known: map[uuid.UUID]bool{defaultProvider: true, otherProvider: true},
		def:   defaultProvider,
	}, logging.Nop())
	c.Fonts = func(name string) bool { return name != "Missing Sans" }
	return c
}

func fullSample() sample {
	limit := 7
	return sample{
		Port:     8443,
		Limit:    &limit,
		UseSSL:   true,
		Account:  uuid.MustParse("a0c9e0a4-6f7e-4a3e-8b51-1f6d7a0c2b9e"),
		Password: "hunter2",
		Host:     "Notes.Example.org",
		Sorting:  models.SortByTitle,
		Font:     "Fira Code",
		Provider: otherProvider,
	}
}

func encodeToString(t *testing.T, c *Codec, s *sample) string {
	t.Helper()
	node, err := c.Encode(context.Background(), sampleTable.Bind(s))
	require.NoError(t, err)
	out, err := yaml.Marshal(node)
	require.NoError(t, err)
	return string(out)
}

func decodeFromString(t *testing.T, c *Codec, doc string, s *sample) {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))
	c.Decode(context.Background(), &node, sampleTable.Bind(s))
}

func TestCodec_RoundTripAllKinds(t *testing.T) {
	c := newTestCodec("app-secret")
	in := fullSample()

	doc := encodeToString(t, c, &in)

	var out sample
	decodeFromString(t, c, doc, &out)

	assert.Equal(t, in, out)
	assert.True(t, Equal(sampleTable.Bind(&in), sampleTable.Bind(&out)))
}

func TestCodec_SecretsNeverInClear(t *testing.T) {
	c := newTestCodec("app-secret")
	in := fullSample()

	doc := encodeToString(t, c, &in)

	assert.NotContains(t, doc, "hunter2")
	assert.Contains(t, doc, "type: EncryptedString")
	assert.Contains(t, doc, "{"+otherProvider.String()+"}")
}

func TestCodec_BlankSecretStoredEmpty(t *testing.T) {
	c := newTestCodec("app-secret")
	in := fullSample()
	in.Password = "   "

	node, err := c.Encode(context.Background(), sampleTable.Bind(&in))
	require.NoError(t, err)

	var entry struct {
		Password struct {
			Value string `yaml:"value"`
		} `yaml:"Password"`
	}
	require.NoError(t, node.Decode(&entry))
	assert.Equal(t, "", entry.Password.Value)
}

func TestCodec_CorruptedCiphertextBecomesEmpty(t *testing.T) {
	c := newTestCodec("app-secret")
	in := fullSample()
	doc := encodeToString(t, c, &in)

	other := newTestCodec("another-secret")
	out := sample{Password: "stale"}
	decodeFromString(t, other, doc, &out)
	assert.Equal(t, "", out.Password)
	assert.Equal(t, in.Host, out.Host, "other fields still load")

	garbage := "Password: {type: EncryptedString, value: '%%%not-base64'}\n"
	out = sample{Password: "stale"}
	decodeFromString(t, c, garbage, &out)
	assert.Equal(t, "", out.Password)
}

func TestCodec_DecodeIsTolerant(t *testing.T) {
	c := newTestCodec("k")
	def := fullSample()

	doc := strings.Join([]string{
		"Port: {type: Integer, value: not-a-number}",
		"Limit: {type: NullableInteger, value: ''}",
		"UseSSL: plain-scalar",
		"Host: {type: Integer, value: wrong-kind}",
		"Sorting: {type: Enumeration, value: sideways}",
		"Unknown: {type: String, value: ignored}",
	}, "\n")

	out := def
	decodeFromString(t, c, doc, &out)

	assert.Equal(t, def.Port, out.Port)
	assert.Nil(t, out.Limit)
	assert.Equal(t, def.UseSSL, out.UseSSL)
	assert.Equal(t, def.Host, out.Host)
	assert.Equal(t, def.Sorting, out.Sorting)

	out = def
	c.Decode(context.Background(), nil, sampleTable.Bind(&out))
	assert.Equal(t, def, out)

	decodeFromString(t, c, "- a\n- b\n", &out)
	assert.Equal(t, def, out)
}

func TestCodec_ProviderFallsBackToDefault(t *testing.T) {
	c := newTestCodec("k")

	for _, v := range []string{"{00000000-0000-0000-0000-00000000abcd}", "garbage"} {
		out := sample{Provider: otherProvider}
		decodeFromString(t, c, "Provider: {type: ProviderReference, value: '"+v+"'}", &out)
		assert.Equal(t, defaultProvider, out.Provider, v)
	}
}

func TestCodec_UnknownFontKeepsCurrent(t *testing.T) {
	c := newTestCodec("k")

	out := sample{Font: "Fira Code"}
	decodeFromString(t, c, "Font: {type: FontName, value: Missing Sans}", &out)
	assert.Equal(t, "Fira Code", out.Font)

	decodeFromString(t, c, "Font: {type: FontName, value: Iosevka}", &out)
	assert.Equal(t, "Iosevka", out.Font)
}

func TestEqual_PerKind(t *testing.T) {
	a, b := fullSample(), fullSample()
	require.True(t, Equal(sampleTable.Bind(&a), sampleTable.Bind(&b)))

	mutations := map[string]func(s *sample){
		"int":      func(s *sample) { s.Port++ },
		"nullable": func(s *sample) { s.Limit = nil },
		"bool":     func(s *sample) { s.UseSSL = false },
		"id":       func(s *sample) { s.Account = uuid.New() },
		"secret":   func(s *sample) { s.Password = "Hunter2" },
		"string":   func(s *sample) { s.Host = strings.ToLower(s.Host) },
		"enum":     func(s *sample) { s.Sorting = models.SortByModified },
		"font":     func(s *sample) { s.Font = "Iosevka" },
		"provider": func(s *sample) { s.Provider = defaultProvider },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			x := fullSample()
			mutate(&x)
			assert.False(t, Equal(sampleTable.Bind(&a), sampleTable.Bind(&x)))
		})
	}

	n1, n2 := 3, 3
	a.Limit, b.Limit = &n1, &n2
	assert.True(t, Equal(sampleTable.Bind(&a), sampleTable.Bind(&b)), "nullable compares by value")
}

func TestBind_PanicsOnTypeMismatch(t *testing.T) {
	bad := Table[sample]{
		{Name: "Port", Kind: Boolean, Ref: func(s *sample) any { return &s.Port }},
	}
	require.Panics(t, func() { bad.Bind(&sample{}) })

	unsupported := Table[sample]{
		{Name: "Port", Kind: Kind(99), Ref: func(s *sample) any { return &s.Port }},
	}
	require.Panics(t, func() { unsupported.Bind(&sample{}) })
}

func TestParseAndFormatValue(t *testing.T) {
	var s sample
	fields := sampleTable.Bind(&s)

	port, ok := Lookup(fields, "Port")
	require.True(t, ok)
	require.NoError(t, ParseValue(port, " 42 "))
	assert.Equal(t, 42, s.Port)
	require.Error(t, ParseValue(port, "x"))
	assert.Equal(t, 42, s.Port)

	limit, _ := Lookup(fields, "Limit")
	require.NoError(t, ParseValue(limit, "5"))
	v, err := FormatValue(limit)
	require.NoError(t, err)
	assert.Equal(t, "5", v)
	require.NoError(t, ParseValue(limit, ""))
	assert.Nil(t, s.Limit)

	sorting, _ := Lookup(fields, "Sorting")
	require.NoError(t, ParseValue(sorting, "title"))
	assert.Equal(t, models.SortByTitle, s.Sorting)

	_, ok = Lookup(fields, "Nope")
	assert.False(t, ok)
}
