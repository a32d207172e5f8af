package iotcore

import "testing"

func TestOsAvailableCPUCount(t *testing.T) {
	t.Logf("GetAvailableCPUCount() = %d", AvailableCPUCount)
}
