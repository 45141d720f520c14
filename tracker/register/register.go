// Package register registers all relevant tracking engines.
package register

import (
	// register engines.
	_ "github.com/alejandrofontan/DROID-SLAM/tracker/fake"
	_ "github.com/alejandrofontan/DROID-SLAM/tracker/process"
)
