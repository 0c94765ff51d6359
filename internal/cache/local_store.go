package cache

import (
	"context"
	"errors"
)

// Keys of the device-local values. They mirror the browser localStorage keys.
const (
	KeyAuthUser         = "authUser"
	KeySelectedFilialID = "selectedFilialeId"
)

var ErrDeviceRequired = errors.New("device id is required")

// LocalStore is a per-device key/value namespace, one scalar string per key.
type LocalStore interface {
	Get(ctx context.Context, deviceID, key string) (string, bool, error)
	Set(ctx context.Context, deviceID, key, value string) error
	Remove(ctx context.Context, deviceID, key string) error
}
