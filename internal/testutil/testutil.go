package testutil

import (
	"os"
	"reflect"
	"testing"
)

func Assert(t *testing.T, expected interface{}, actual interface{}, msg string) {
	t.Helper()

	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("%s: expected %v got %v", msg, expected, actual)
	}
}

func IsNil(t *testing.T, v interface{}, msg string) {
	t.Helper()

	if v == nil {
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		if rv.IsNil() {
			return
		}
	}

	t.Fatalf("%s: expected nil got %v", msg, v)
}

func IsNotNil(t *testing.T, v interface{}, msg string) {
	t.Helper()

	if v == nil {
		t.Fatalf("%s: expected non-nil", msg)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		if rv.IsNil() {
			t.Fatalf("%s: expected non-nil", msg)
		}
	}
}

func ReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}

	return data
}
