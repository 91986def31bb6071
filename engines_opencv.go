//go:build with_cv

package main

import _ "blurrer/converter/opencv"
