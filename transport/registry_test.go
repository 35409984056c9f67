package transport

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock config for testing
type mockConfig struct {
	transport string
}

func (m *mockConfig) GetTransport() string     { return m.transport }
func (m *mockConfig) GetServerAddress() string { return "" }
func (m *mockConfig) GetServerPort() int       { return 0 }

// Mock native transport
type mockNative struct{}

func (m *mockNative) Load() bool                    { return true }
func (m *mockNative) Free() bool                    { return true }
func (m *mockNative) SetServer(string) bool         { return true }
func (m *mockNative) SetPort(int) bool              { return true }
func (m *mockNative) IsConnected() bool             { return false }
func (m *mockNative) Disconnect() bool              { return true }
func (m *mockNative) Connect(Endpoint, int, byte, byte, string, string, string) bool {
	return true
}
func (m *mockNative) Query(Endpoint, int, string, []byte, int) bool { return true }
func (m *mockNative) Attach(Endpoint, string, string, int, int) bool {
	return true
}
func (m *mockNative) Detach(Endpoint, string, string, int, int) bool {
	return true
}
func (m *mockNative) HashAccountPassword(int, string) (string, bool) { return "", false }

func mockBuilder(cfg Config, logger watermill.LoggerAdapter) (Native, error) {
	return &mockNative{}, nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.NotNil(t, reg)
	assert.NotNil(t, reg.builders)
	assert.Empty(t, reg.Names())
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	reg.Register("test-transport", mockBuilder)
	assert.True(t, reg.Has("test-transport"))
	assert.Contains(t, reg.Names(), "test-transport")
}

func TestRegistry_Build(t *testing.T) {
	reg := NewRegistry()
	reg.Register("test-transport", mockBuilder)

	cfg := &mockConfig{transport: "test-transport"}

	native, err := reg.Build(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, native)
	assert.True(t, native.Load())
}

func TestRegistry_Build_NilConfig(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Build(nil, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestRegistry_Build_UnknownTransport(t *testing.T) {
	reg := NewRegistry()
	cfg := &mockConfig{transport: "unknown-transport"}

	_, err := reg.Build(cfg, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestRegistry_Build_BuilderError(t *testing.T) {
	reg := NewRegistry()

	expectedErr := errors.New("builder error")
	builder := func(cfg Config, logger watermill.LoggerAdapter) (Native, error) {
		return nil, expectedErr
	}

	reg.Register("failing-transport", builder)
	cfg := &mockConfig{transport: "failing-transport"}

	_, err := reg.Build(cfg, nil)
	assert.Error(t, err)
	assert.Equal(t, expectedErr, err)
}

func TestRegistry_Has(t *testing.T) {
	reg := NewRegistry()

	assert.False(t, reg.Has("test-transport"))

	reg.Register("test-transport", mockBuilder)
	assert.True(t, reg.Has("test-transport"))
	assert.False(t, reg.Has("other-transport"))
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()

	assert.Empty(t, reg.Names())

	reg.Register("transport1", mockBuilder)
	reg.Register("transport2", mockBuilder)
	reg.Register("transport3", mockBuilder)

	names := reg.Names()
	assert.Len(t, names, 3)
	assert.Contains(t, names, "transport1")
	assert.Contains(t, names, "transport2")
	assert.Contains(t, names, "transport3")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				reg.Register("transport", mockBuilder)
				reg.Has("transport")
				reg.Names()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.True(t, reg.Has("transport"))
}

func TestGlobalRegistry(t *testing.T) {
	assert.NotNil(t, DefaultRegistry)
}

func TestBuildWithDefaultRegistry(t *testing.T) {
	cfg := &mockConfig{transport: "nonexistent"}

	_, err := Build(cfg, nil)
	assert.Error(t, err)
}

func TestPackageLevelRegister(t *testing.T) {
	Register("test-pkg-transport", mockBuilder)

	assert.True(t, DefaultRegistry.Has("test-pkg-transport"))
}
