package imagepipeline

import "testing"

func TestRequestOptions_Has(t *testing.T) {
	o := DisableMemoryCacheReads | SkipDecompression
	if !o.Has(DisableMemoryCacheReads) {
		t.Error("Has should report set bits")
	}
	if o.Has(DisableDiskCacheReads) {
		t.Error("Has should not report unset bits")
	}
	if !o.Has(DisableMemoryCacheReads | SkipDecompression) {
		t.Error("Has should report a combined mask that's fully set")
	}
	if o.Has(DisableMemoryCacheReads | DisableDiskCacheReads) {
		t.Error("Has should require every bit in the mask to be set")
	}
}

func TestRequestOptions_DisablesMemoryReads(t *testing.T) {
	if (RequestOptions(0)).disablesMemoryReads() {
		t.Error("no options set should not disable memory reads")
	}
	if !DisableMemoryCacheReads.disablesMemoryReads() {
		t.Error("DisableMemoryCacheReads should disable memory reads")
	}
	if !ReloadIgnoringCachedData.disablesMemoryReads() {
		t.Error("ReloadIgnoringCachedData should fold into disabling memory reads")
	}
}

func TestRequestOptions_DisablesDiskReads(t *testing.T) {
	if (RequestOptions(0)).disablesDiskReads() {
		t.Error("no options set should not disable disk reads")
	}
	if !DisableDiskCacheReads.disablesDiskReads() {
		t.Error("DisableDiskCacheReads should disable disk reads")
	}
	if !ReloadIgnoringCachedData.disablesDiskReads() {
		t.Error("ReloadIgnoringCachedData should fold into disabling disk reads")
	}
}

func TestThumbnailOptions_IsFixedSize(t *testing.T) {
	if (ThumbnailOptions{MaxPixelSize: 100}).IsFixedSize() != true {
		t.Error("MaxPixelSize > 0 should report fixed size")
	}
	if (ThumbnailOptions{Width: 10, Height: 10}).IsFixedSize() != false {
		t.Error("MaxPixelSize == 0 should report flexible size")
	}
}

func TestUserInfo_ThumbnailAndScale(t *testing.T) {
	u := UserInfo{
		UserInfoKeyThumbnail: ThumbnailOptions{MaxPixelSize: 50},
		UserInfoKeyScale:     2.0,
	}
	if th, ok := u.Thumbnail(); !ok || th.MaxPixelSize != 50 {
		t.Errorf("Thumbnail() = %+v, %v", th, ok)
	}
	if sc, ok := u.Scale(); !ok || sc != 2.0 {
		t.Errorf("Scale() = %v, %v", sc, ok)
	}

	empty := UserInfo{}
	if _, ok := empty.Thumbnail(); ok {
		t.Error("Thumbnail() on empty UserInfo should miss")
	}
	if _, ok := empty.Scale(); ok {
		t.Error("Scale() on empty UserInfo should miss")
	}
}
