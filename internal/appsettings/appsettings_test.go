package appsettings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/logging"
	"github.com/ustczzh/AlephNote/internal/models"
	"github.com/ustczzh/AlephNote/internal/plugins"
	"github.com/ustczzh/AlephNote/internal/plugins/folder"
	"github.com/ustczzh/AlephNote/internal/plugins/s3store"
	"github.com/ustczzh/AlephNote/internal/settings"
)

func setup(t *testing.T) (*plugins.Registry, *settings.Codec, string) {
	t.Helper()
	reg, err := plugins.Builtin()
	require.NoError(t, err)
	codec := settings.NewCodec([]byte("0123456789abcdef0123456789abcdef"), reg, logging.Nop())
	return reg, codec, filepath.Join(t.TempDir(), "conf", "settings.yaml")
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	reg, codec, path := setup(t)

	s, err := Load(context.Background(), path, codec, reg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, folder.ID, s.NoteProvider)
	assert.Equal(t, 300, s.SyncIntervalSeconds)
	assert.NotEqual(t, uuid.Nil, s.DeviceID)
	assert.Len(t, s.PluginSettings, len(reg.List()))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	reg, codec, path := setup(t)
	ctx := context.Background()

	s := Default(reg)
	s.NoteProvider = s3store.ID
	s.SyncIntervalSeconds = 60
	timeout := 15
	s.RemoteTimeoutSeconds = &timeout
	s.Sorting = models.SortByTitle
	s.Proxy.Enabled = true
	s.Proxy.Host = "proxy.local"
	s.Proxy.Port = 3128
	s.Proxy.Password = "proxy-pass"

	s3cfg := s.ProviderConfig(s3store.ID).(*s3store.Config)
	s3cfg.Bucket = "notes"
	s3cfg.SecretKey = "very-secret-key"
	s.ProviderConfig(folder.ID).(*folder.Config).Path = "/tmp/notes"

	require.NoError(t, s.Save(ctx, path, codec))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "very-secret-key")
	assert.NotContains(t, string(raw), "proxy-pass")
	assert.Contains(t, string(raw), "{"+s3store.ID.String()+"}")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(ctx, path, codec, reg, logging.Nop())
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
	assert.Equal(t, s.DeviceID, got.DeviceID)
	assert.Equal(t, "very-secret-key", got.ActiveConfig().(*s3store.Config).SecretKey)
	assert.Equal(t, "/tmp/notes", got.ProviderConfig(folder.ID).(*folder.Config).Path)
	require.NotNil(t, got.RemoteTimeoutSeconds)
	assert.Equal(t, 15, *got.RemoteTimeoutSeconds)
	assert.Equal(t, "proxy-pass", got.Proxy.Password)
}

func TestLoad_WrongKeyClearsSecretsOnly(t *testing.T) {
	reg, codec, path := setup(t)
	ctx := context.Background()

	s := Default(reg)
	s.ProviderConfig(s3store.ID).(*s3store.Config).SecretKey = "k"
	s.ProviderConfig(s3store.ID).(*s3store.Config).Bucket = "b"
	require.NoError(t, s.Save(ctx, path, codec))

	other := settings.NewCodec([]byte("another key entirely, 32 bytes!!"), reg, logging.Nop())
	got, err := Load(ctx, path, other, reg, logging.Nop())
	require.NoError(t, err)

	cfg := got.ProviderConfig(s3store.ID).(*s3store.Config)
	assert.Empty(t, cfg.SecretKey)
	assert.Equal(t, "b", cfg.Bucket)
}

func TestLoad_UnknownProviderFallsBack(t *testing.T) {
	reg, codec, path := setup(t)
	doc := `settings:
  NoteProvider: {type: ProviderReference, value: "{` + uuid.NewString() + `}"}
  SyncIntervalSeconds: {type: Integer, value: "not a number"}
providers:
  "{` + uuid.NewString() + `}":
    Whatever: {type: String, value: x}
  "not-a-uuid": {}
`
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := Load(context.Background(), path, codec, reg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, folder.ID, s.NoteProvider)
	assert.Equal(t, 300, s.SyncIntervalSeconds)
	assert.Len(t, s.PluginSettings, len(reg.List()))
}

func TestLoad_Corrupt(t *testing.T) {
	reg, codec, path := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))

	require.NoError(t, os.WriteFile(path, []byte("settings: [unclosed"), 0o600))
	s, err := Load(context.Background(), path, codec, reg, logging.Nop())
	assert.ErrorIs(t, err, common.ErrSerialization)
	require.NotNil(t, s, "defaults are returned alongside the error")

	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o600))
	_, err = Load(context.Background(), path, codec, reg, logging.Nop())
	assert.ErrorIs(t, err, common.ErrSerialization)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, err = Load(context.Background(), path, codec, reg, logging.Nop())
	assert.NoError(t, err)
}

func TestRequiresReconnect(t *testing.T) {
	reg, _, _ := setup(t)
	base := Default(reg)

	same := base.Clone()
	same.SyncIntervalSeconds = 10
	same.Sorting = models.SortByTitle
	assert.False(t, base.RequiresReconnect(same), "engine options alone do not need a new connection")

	inactive := base.Clone()
	inactive.ProviderConfig(s3store.ID).(*s3store.Config).Bucket = "elsewhere"
	assert.False(t, base.RequiresReconnect(inactive))

	active := base.Clone()
	active.ActiveConfig().(*folder.Config).Path = "/elsewhere"
	assert.True(t, base.RequiresReconnect(active))

	provider := base.Clone()
	provider.NoteProvider = s3store.ID
	assert.True(t, base.RequiresReconnect(provider))

	proxy := base.Clone()
	proxy.Proxy.Enabled = true
	assert.True(t, base.RequiresReconnect(proxy))
}

func TestClone_IsDeep(t *testing.T) {
	reg, _, _ := setup(t)
	s := Default(reg)
	v := 5
	s.RemoteTimeoutSeconds = &v

	c := s.Clone()
	*c.RemoteTimeoutSeconds = 6
	c.ActiveConfig().(*folder.Config).Path = "changed"

	assert.Equal(t, 5, *s.RemoteTimeoutSeconds)
	assert.Empty(t, s.ActiveConfig().(*folder.Config).Path)
	assert.False(t, s.Equal(c))
}

func TestLoadOrCreateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "secret.key")

	k1, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Len(t, k1, secretSize)

	k2, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("z", 10)), 0o600))
	_, err = LoadOrCreateSecret(path)
	assert.ErrorIs(t, err, common.ErrEncryption)
}
