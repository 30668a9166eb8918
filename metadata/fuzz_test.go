package metadata

import (
	"testing"
)

// FuzzDecodeFolderMetadata ensures the folder decoder never panics and
// that anything it accepts re-encodes cleanly.
func FuzzDecodeFolderMetadata(f *testing.F) {
	f.Add([]byte(`{"version":"v1","children":[]}`))
	f.Add([]byte(`{"version":"v2","children":[{"version":"v2","type":"file","id":"x","name":"a","fileMetaPointerName":"p"}]}`))
	f.Add([]byte(`{"version":"v2","children":[{"name":"a","cid":"c"}]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		doc, err := DecodeFolderMetadata(raw)
		if err != nil {
			return
		}
		if _, err := EncodeFolderMetadata(doc); err != nil {
			t.Fatalf("accepted document failed to re-encode: %v", err)
		}
	})
}

// FuzzDecodeFileMetadata ensures the file decoder never panics.
func FuzzDecodeFileMetadata(f *testing.F) {
	f.Add([]byte(`{"version":"v1","cid":"c","fileKeyEncrypted":"de","fileIv":"0102030405060708090a0b0c"}`))
	f.Add([]byte(`{"version":"v1"}`))
	f.Add([]byte(`null`))

	f.Fuzz(func(t *testing.T, raw []byte) {
		m, err := DecodeFileMetadata(raw)
		if err != nil {
			return
		}
		if _, err := EncodeFileMetadata(m); err != nil {
			t.Fatalf("accepted document failed to re-encode: %v", err)
		}
	})
}

// FuzzParseEnvelope ensures envelope parsing never panics on arbitrary
// stored blobs.
func FuzzParseEnvelope(f *testing.F) {
	f.Add([]byte(`{"iv":"000000000000000000000000","data":"AAAAAAAAAAAAAAAAAAAAAA=="}`))
	f.Add([]byte(`{"iv":"","data":""}`))
	f.Add([]byte(``))

	f.Fuzz(func(t *testing.T, raw []byte) {
		// Must not panic; errors are expected.
		ParseEnvelope(raw)
	})
}
