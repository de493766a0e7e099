package version

// Version is stamped by the release build:
// go build -ldflags "-X github.com/booknetwork/booknet/pkg/version.Version=1.2.0".
var Version = "dev"
