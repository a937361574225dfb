// Package kv holds the JSON codec shared by every core.Store implementation.
package kv

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
)

// Decode unmarshals raw into dst. dst is left untouched, and false returned, when raw is malformed.
func Decode(logger core.Logger, key string, raw []byte, dst interface{}) bool {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		logger.Error(fmt.Sprintf("loading %q: destination must be a non-nil pointer, got %T", key, dst))
		return false
	}

	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		logger.Error(fmt.Sprintf("loading %q: malformed content, using default", key), errors.Wrap(err, "decoding "+key))
		return false
	}
	rv.Elem().Set(tmp.Elem())
	return true
}

// Encode marshals value into its stored form.
func Encode(key string, value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %q", key)
	}
	return data, nil
}
