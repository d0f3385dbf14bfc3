package imagepipeline

import "testing"

func TestDataCachePolicy_ShouldStoreOriginal(t *testing.T) {
	cases := []struct {
		policy        DataCachePolicy
		hasProcessors bool
		want          bool
	}{
		{DataCachePolicyAutomatic, false, true},
		{DataCachePolicyAutomatic, true, false},
		{DataCachePolicyStoreOriginalData, false, true},
		{DataCachePolicyStoreOriginalData, true, true},
		{DataCachePolicyStoreEncodedImages, false, true},
		{DataCachePolicyStoreEncodedImages, true, false},
		{DataCachePolicyStoreAll, false, true},
		{DataCachePolicyStoreAll, true, true},
	}
	for _, c := range cases {
		if got := c.policy.shouldStoreOriginal(c.hasProcessors); got != c.want {
			t.Errorf("%s.shouldStoreOriginal(%v) = %v, want %v", c.policy, c.hasProcessors, got, c.want)
		}
	}
}

func TestDataCachePolicy_ShouldStoreProcessed(t *testing.T) {
	cases := []struct {
		policy        DataCachePolicy
		hasProcessors bool
		want          bool
	}{
		{DataCachePolicyAutomatic, false, false},
		{DataCachePolicyAutomatic, true, true},
		{DataCachePolicyStoreOriginalData, false, false},
		{DataCachePolicyStoreOriginalData, true, false},
		{DataCachePolicyStoreEncodedImages, false, false},
		{DataCachePolicyStoreEncodedImages, true, true},
		{DataCachePolicyStoreAll, false, false},
		{DataCachePolicyStoreAll, true, true},
	}
	for _, c := range cases {
		if got := c.policy.shouldStoreProcessed(c.hasProcessors); got != c.want {
			t.Errorf("%s.shouldStoreProcessed(%v) = %v, want %v", c.policy, c.hasProcessors, got, c.want)
		}
	}
}

func TestDataCachePolicy_ShouldStoreIntermediates(t *testing.T) {
	for _, p := range []DataCachePolicy{
		DataCachePolicyAutomatic,
		DataCachePolicyStoreOriginalData,
		DataCachePolicyStoreEncodedImages,
	} {
		if p.shouldStoreIntermediates() {
			t.Errorf("%s.shouldStoreIntermediates() = true, want false", p)
		}
	}
	if !DataCachePolicyStoreAll.shouldStoreIntermediates() {
		t.Error("DataCachePolicyStoreAll.shouldStoreIntermediates() = false, want true")
	}
}

func TestDataOriginalKey_MatchesSourceCacheKey(t *testing.T) {
	req := Request{Source: IdentifierSource{Identifier: "https://x/a.jpg"}}
	if got, want := dataOriginalKey(req), "https://x/a.jpg"; got != want {
		t.Errorf("dataOriginalKey = %q, want %q", got, want)
	}
}

func TestDataFinalKey_ThumbnailTakesPriorityOverProcessors(t *testing.T) {
	req := Request{
		Source:     IdentifierSource{Identifier: "https://x/a.jpg"},
		Processors: []Processor{fakeProcessor{id: "resize"}},
		UserInfo: UserInfo{
			UserInfoKeyThumbnail: ThumbnailOptions{MaxPixelSize: 64},
		},
	}
	got := dataFinalKey(req)
	want := "https://x/a.jpgcom.github/kean/nuke/thumbnail?maxPixelSize=64,options=falsefalsefalsefalse"
	if got != want {
		t.Errorf("dataFinalKey = %q, want %q", got, want)
	}
}

func TestIsLocalSource(t *testing.T) {
	if isLocalSource(Request{Source: IdentifierSource{Identifier: "a", IsLocal: true}}) != true {
		t.Error("expected local source to report true")
	}
	if isLocalSource(Request{Source: IdentifierSource{Identifier: "a"}}) != false {
		t.Error("expected non-local source to report false")
	}
}
