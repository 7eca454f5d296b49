/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package maps decodes a Value Object's plain-map projection into a typed
// Go struct via mitchellh/mapstructure, the same role the teacher's
// (unretrieved) rule/utils/maps.Map2Struct helper plays for node
// configuration decoding.
//
// Package maps 通过 mitchellh/mapstructure 将 Value 对象的纯 map 投影
// 解码为类型化的 Go 结构体。
package maps

import (
	"github.com/mitchellh/mapstructure"

	"github.com/bittoy/hfsm/value"
)

// Map2Struct decodes src (a plain map[string]interface{}, typically from
// Value.ToPlain) into dst, which must be a pointer to a struct.
func Map2Struct(src map[string]interface{}, dst interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(src)
}

// Value2Struct decodes an Object Value into dst via Map2Struct.
func Value2Struct(v value.Value, dst interface{}) error {
	plain, err := v.ToPlain()
	if err != nil {
		return err
	}
	m, _ := plain.(map[string]interface{})
	return Map2Struct(m, dst)
}
