// Package register registers all camera device models.
package register

import (
	// register device models.
	_ "github.com/viam-labs/depthoverlay/components/camera/fake"
	_ "github.com/viam-labs/depthoverlay/components/camera/videosource"
)
