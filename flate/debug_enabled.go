// Copyright 2025 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build xcompdebug

package flate

import "log"

func debugf(format string, args ...interface{}) {
	log.Printf("flate: "+format, args...)
}
