package testutil

import (
	"github.com/gostratum/core/logx"
	"github.com/gostratum/filex"
	"go.uber.org/fx"
)

// TestModule provides a test configuration, an in-memory backend and a no-op
// logger on top of filex.Components, so that filex consumers can be wired
// without external configuration.
//
// Example usage:
//
//	import "github.com/gostratum/filex/internal/testutil"
//
//	func TestMyApp(t *testing.T) {
//	    app := fxtest.New(t,
//	        testutil.TestModule,
//	        fx.Invoke(func(files *filex.FileService) {
//	            // Use files
//	        }),
//	    )
//	    // ...
//	}
var TestModule = fx.Module("filex-test",
	fx.Provide(
		NewTestConfig,
		NewMockBackend,
		func(m *MockBackend) filex.Backend { return m },
		logx.NewNoopLogger,
	),
	filex.Components(),
)

// NewTestConfig creates a test configuration suitable for unit tests.
// The configuration points to a local MinIO instance with default credentials.
func NewTestConfig() *filex.Config {
	cfg := filex.DefaultConfig()
	cfg.Bucket = "test-bucket"
	cfg.Endpoint = "http://localhost:9000"
	cfg.UsePathStyle = true
	cfg.AccessKey = "minioadmin"
	cfg.SecretKey = "minioadmin"
	cfg.DisableSSL = true
	cfg.Disk = "test"
	return cfg
}
