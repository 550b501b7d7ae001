package middleware

import "testing"

func TestClassifyAction(t *testing.T) {
	tests := []struct {
		method     string
		path       string
		action     string
		resource   string
		resourceId string
	}{
		{"POST", "/dashboard/admin/settings/update", "UPDATE", "settings", ""},
		{"POST", "/dashboard/admin/courses/save", "CREATE", "courses", "save"},
		{"POST", "/dashboard/admin/courses/del/advaita-1", "DELETE", "courses", "advaita-1"},
		{"POST", "/dashboard/admin/campaigns/send", "CREATE", "campaigns", "send"},
		{"POST", "/dashboard/admin/cache/flush", "CREATE", "cache", "flush"},
		{"POST", "/dashboard/admin/db/import", "CREATE", "db", "import"},
		{"PUT", "/dashboard/admin/settings", "UPDATE", "settings", ""},
		{"DELETE", "/dashboard/admin/forms/42", "DELETE", "forms", "42"},
	}
	for _, tc := range tests {
		action, resource, resourceId := classifyAction(tc.method, tc.path)
		if action != tc.action || resource != tc.resource || resourceId != tc.resourceId {
			t.Errorf("classifyAction(%s %s) = (%q, %q, %q), want (%q, %q, %q)",
				tc.method, tc.path, action, resource, resourceId, tc.action, tc.resource, tc.resourceId)
		}
	}
}
