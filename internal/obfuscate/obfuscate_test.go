package obfuscate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestObfuscator(t *testing.T) *Obfuscator {
	t.Helper()
	secret := []byte(strings.Repeat("k", KeySize))
	o, err := New(secret, true)
	require.NoError(t, err)
	return o
}

func TestRoundTrip(t *testing.T) {
	o := newTestObfuscator(t)

	paths := []string{
		"/home/user/project/main.go",
		"/home/user/project/deeply/nested/dir/file.py",
		"/",
		"/with spaces/and-üñïçödé/файл.txt",
	}
	for _, p := range paths {
		token := o.Obfuscate(p)
		back, err := o.Deobfuscate(token)
		require.NoError(t, err, p)
		assert.Equal(t, p, back)
	}
}

func TestObfuscate_Deterministic(t *testing.T) {
	o := newTestObfuscator(t)
	assert.Equal(t, o.Obfuscate("/a/b/c.go"), o.Obfuscate("/a/b/c.go"))
	assert.NotEqual(t, o.Obfuscate("/a/b/c.go"), o.Obfuscate("/a/b/d.go"))
}

func TestObfuscate_HidesPath(t *testing.T) {
	o := newTestObfuscator(t)
	token := o.Obfuscate("/home/user/secret-project/main.go")
	assert.NotContains(t, token, "secret-project")
	assert.NotContains(t, token, "main.go")
}

func TestObfuscate_SameSecretSameTokens(t *testing.T) {
	secret := []byte(strings.Repeat("s", KeySize))
	o1, err := New(secret, true)
	require.NoError(t, err)
	o2, err := New(secret, true)
	require.NoError(t, err)

	assert.Equal(t, o1.Obfuscate("/x/y.go"), o2.Obfuscate("/x/y.go"))
}

func TestObfuscate_DifferentSecretsDifferentTokens(t *testing.T) {
	o1, err := New([]byte(strings.Repeat("a", KeySize)), true)
	require.NoError(t, err)
	o2, err := New([]byte(strings.Repeat("b", KeySize)), true)
	require.NoError(t, err)

	token := o1.Obfuscate("/x/y.go")
	assert.NotEqual(t, token, o2.Obfuscate("/x/y.go"))

	// The other secret cannot decode it either.
	_, err = o2.Deobfuscate(token)
	assert.Error(t, err)
}

func TestDeobfuscate_MalformedTokens(t *testing.T) {
	o := newTestObfuscator(t)

	_, err := o.Deobfuscate("!!!not base64!!!")
	assert.Error(t, err)
	_, err = o.Deobfuscate("AAAA")
	assert.Error(t, err)
	_, err = o.Deobfuscate("")
	assert.Error(t, err)
}

func TestNew_RejectsBadKeySize(t *testing.T) {
	_, err := New([]byte("short"), true)
	assert.Error(t, err)
}

func TestLoadOrCreateSecret_CreatesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "secret.key")

	first, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Len(t, first, KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrCreateSecret(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrCreateSecret_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")
	require.NoError(t, os.WriteFile(path, []byte("not hex at all"), 0o600))

	_, err := LoadOrCreateSecret(path)
	assert.Error(t, err)
}

func TestNewFromFile_PersistentTokensStableAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.key")

	o1, err := NewFromFile(path, nil)
	require.NoError(t, err)
	require.True(t, o1.Persistent())

	o2, err := NewFromFile(path, nil)
	require.NoError(t, err)

	token := o1.Obfuscate("/proj/file.go")
	assert.Equal(t, token, o2.Obfuscate("/proj/file.go"))

	back, err := o2.Deobfuscate(token)
	require.NoError(t, err)
	assert.Equal(t, "/proj/file.go", back)
}

func TestNewFromFile_DegradesToInMemory(t *testing.T) {
	// Point the secret inside a plain file so directory creation fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	path := filepath.Join(blocker, "sub", "secret.key")

	o, err := NewFromFile(path, nil)
	require.NoError(t, err)
	assert.False(t, o.Persistent())

	// Still internally consistent for the process lifetime.
	token := o.Obfuscate("/a/b.go")
	back, err := o.Deobfuscate(token)
	require.NoError(t, err)
	assert.Equal(t, "/a/b.go", back)
}
