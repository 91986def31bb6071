//go:build with_vips

package main

import _ "blurrer/converter/vips"
