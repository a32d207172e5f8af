package iotcore

// AvailableCPUCount is used to size the default thread pool when its
// NumWorkers is left unset.
var AvailableCPUCount = GetAvailableCPUCount()
