package appsettings

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ustczzh/AlephNote/internal/common"
	"github.com/ustczzh/AlephNote/internal/filex"
)

const secretSize = 32

// LoadOrCreateSecret returns the key that protects EncryptedString
// settings, generating and storing it (mode 0600) on first use.
func LoadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(key) != secretSize {
			return nil, fmt.Errorf("%w: secret file %s is corrupt", common.ErrEncryption, path)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	key := common.GenerateRandByteArray(secretSize)
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := filex.WriteFileAtomic(path, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, err
	}
	return key, nil
}
