// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"sparsenet"
)

func main() {
	sparsenet.Main()
}
