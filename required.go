// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpmpack

import (
	"github.com/packhouse/rpmpack/header"
	"github.com/pkg/errors"
)

var (
	// ErrMissingRequiredTag is returned when a mandatory header or
	// signature tag is absent from a decoded package.
	ErrMissingRequiredTag = errors.New("rpmpack: required rpm tag is missing")
	// ErrInvalidRPMTagType is returned when a required tag is present
	// but was decoded with an unexpected value type.
	ErrInvalidRPMTagType = errors.New("rpmpack: rpm tag is wrong type")
)

type requiredTag struct {
	tag         header.Tag
	typ         header.ValueType
	description string
}

var requiredSignatureTags = []requiredTag{
	{header.SigSHA256, header.TypeString, "signature sha256"},
	{header.SigSize, header.TypeInt32, "signature size"},
	{header.SigPayloadSize, header.TypeInt32, "signature payload size"},
}

var requiredHeaderTags = []requiredTag{
	{header.TagName, header.TypeString, "rpm name"},
	{header.TagSummary, header.TypeString, "rpm summary"},
	{header.TagDescription, header.TypeString, "rpm description"},
	{header.TagVersion, header.TypeString, "rpm version"},
	{header.TagRelease, header.TypeString, "rpm release"},
	{header.TagSize, header.TypeInt32, "rpm size"},
	{header.TagOS, header.TypeString, "rpm os"},
	{header.TagArch, header.TypeString, "rpm architecture"},
	{header.TagPayloadFormat, header.TypeString, "rpm payload format"},
	{header.TagPayloadCompressor, header.TypeString, "rpm payload compressor"},
	{header.TagPayloadFlags, header.TypeString, "rpm payload flags"},
}

// VerifyRequiredTags checks that sig and hdr carry every tag a valid RPM
// must have, with the expected value type. SIGPAYLOADSIZE (the raw CPIO
// byte count) and SIZE (the sum of installed file sizes) describe
// different quantities and are intentionally not cross-checked here.
func VerifyRequiredTags(sig, hdr *header.Store) error {
	if err := verifyTags(sig, requiredSignatureTags); err != nil {
		return err
	}
	return verifyTags(hdr, requiredHeaderTags)
}

func verifyTags(s *header.Store, required []requiredTag) error {
	for _, rt := range required {
		v, ok := s.Get(rt.tag)
		if !ok {
			return errors.Wrap(ErrMissingRequiredTag, rt.description)
		}
		if v.Type != rt.typ {
			return errors.Wrapf(ErrInvalidRPMTagType, "%s got: %s expected: %s", rt.description, v.Type, rt.typ)
		}
	}
	return nil
}
