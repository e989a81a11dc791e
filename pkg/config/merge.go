package config

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// MergeConfig 用 src 的非零字段覆盖 dst，返回 dst
// 一方为 nil 时直接返回另一方；map 按键合并，切片整体替换
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, ErrNilConfig
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := merge(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem(), reflect.TypeOf(dst).Elem().Name()); err != nil {
		return nil, err
	}
	return dst, nil
}

func merge(dst, src reflect.Value, path string) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}
	if dst.Kind() != src.Kind() {
		return errors.Newf("config: cannot merge %s into %s at %s", src.Kind(), dst.Kind(), path)
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if err := merge(dst.Field(i), src.Field(i), path+"."+f.Name); err != nil {
				return err
			}
		}

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Len()))
		}
		iter := src.MapRange()
		for iter.Next() {
			cur := reflect.New(dst.Type().Elem()).Elem()
			if old := dst.MapIndex(iter.Key()); old.IsValid() {
				cur.Set(old)
			}
			if err := merge(cur, iter.Value(), path+"["+iter.Key().String()+"]"); err != nil {
				return err
			}
			dst.SetMapIndex(iter.Key(), cur)
		}

	case reflect.Pointer:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return merge(dst.Elem(), src.Elem(), path)

	default:
		if dst.CanSet() {
			dst.Set(src)
		}
	}
	return nil
}
