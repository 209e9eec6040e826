package ogimage

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want routeClass
	}{
		{"/", classPage},
		{"/blog/hello/", classPage},
		{"/page/cart/", classPage},
		{"/public/uploads/a.jpg", classStatic},
		{"/sitemap.xml", classFeed},
		{"/feed.xml", classFeed},
		{"/robots.txt", classFeed},
		{"/admin/", classAdmin},
		{"/admin/images/upload/", classAdmin},
		{"/metrics", classMetrics},
		{"/metrics/", classPage},
	}
	for _, tt := range tests {
		if got := classify(tt.path); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCacheControlCoversEveryClass(t *testing.T) {
	for c := classPage; c <= classMetrics; c++ {
		if cacheControl[c] == "" {
			t.Errorf("no Cache-Control value for route class %d", c)
		}
	}
}
