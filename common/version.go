package common

// PackageName identifies this module in logs and service tags.
const PackageName = "consent-core"

// Version is the service version. Overridden at build time:
//
//	go build -ldflags "-X github.com/hushh-labs/consent-core/common.Version=v1.2.3"
var Version = "dev"
