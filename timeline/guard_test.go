// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import "testing"

func TestGuardSingleFlight(t *testing.T) {
	var guard SingleFlightGuard

	if guard.Busy() {
		t.Fatal("fresh guard should not be busy")
	}
	if !guard.TryAcquire() {
		t.Fatal("first TryAcquire should succeed")
	}
	if !guard.Busy() {
		t.Error("guard should report busy while held")
	}
	if guard.TryAcquire() {
		t.Fatal("second TryAcquire must fail immediately, not queue")
	}

	guard.Release()
	if guard.Busy() {
		t.Error("guard should not be busy after Release")
	}
	if !guard.TryAcquire() {
		t.Fatal("TryAcquire should succeed after Release")
	}
	guard.Release()
}
