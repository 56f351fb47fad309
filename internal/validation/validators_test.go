package validation

import "testing"

func TestValidatePriority(t *testing.T) {
	t.Parallel()

	valid := []string{"high", "medium", "low", "高", "中", "低"}
	for _, v := range valid {
		if err := ValidatePriority(v); err != nil {
			t.Errorf("ValidatePriority(%q) = %v, want nil", v, err)
		}
	}
	invalid := []string{"", "urgent", "HIGH", "最高"}
	for _, v := range invalid {
		if err := ValidatePriority(v); err == nil {
			t.Errorf("ValidatePriority(%q) = nil, want error", v)
		}
	}
}

func TestValidateTaskStatus(t *testing.T) {
	t.Parallel()

	valid := []string{"not_started", "in_progress", "completed", "未着手", "進行中", "完了"}
	for _, v := range valid {
		if err := ValidateTaskStatus(v); err != nil {
			t.Errorf("ValidateTaskStatus(%q) = %v, want nil", v, err)
		}
	}
	if err := ValidateTaskStatus("done"); err == nil {
		t.Error("ValidateTaskStatus(done) = nil, want error")
	}
}

func TestValidateCategories(t *testing.T) {
	t.Parallel()

	if err := ValidateCategories([]string{"数学", "統計学"}); err != nil {
		t.Errorf("ValidateCategories = %v, want nil", err)
	}
	if err := ValidateCategories([]string{"数学", "家事"}); err == nil {
		t.Error("ValidateCategories with unknown label = nil, want error")
	}
	if err := ValidateCategories(nil); err != nil {
		t.Errorf("ValidateCategories(nil) = %v, want nil", err)
	}
}

func TestValidateISODate(t *testing.T) {
	t.Parallel()

	valid := []string{"2026-03-11", "2028-02-29", "2026-12-31"}
	for _, v := range valid {
		if err := ValidateISODate(v); err != nil {
			t.Errorf("ValidateISODate(%q) = %v, want nil", v, err)
		}
	}
	invalid := []string{"", "2026/03/11", "2026-02-30", "2026-13-01", "26-3-1", "2026-3-11"}
	for _, v := range invalid {
		if err := ValidateISODate(v); err == nil {
			t.Errorf("ValidateISODate(%q) = nil, want error", v)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  明日まで提出  ", "明日まで提出"},
		{"a\x00b", "ab"},
		{"line1\nline2", "line1\nline2"},
		{"tab\there", "tab\there"},
	}

	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStructValidation(t *testing.T) {
	t.Parallel()

	type request struct {
		Priority string `validate:"omitempty,priority"`
		Status   string `validate:"omitempty,task_status"`
		DueDate  string `validate:"omitempty,iso_date"`
		Category string `validate:"omitempty,category"`
	}

	good := request{Priority: "高", Status: "in_progress", DueDate: "2026-03-11", Category: "数学"}
	if err := Validate.Struct(good); err != nil {
		t.Errorf("Validate.Struct(valid) = %v, want nil", err)
	}

	bad := request{Priority: "urgent"}
	if err := Validate.Struct(bad); err == nil {
		t.Error("Validate.Struct(invalid priority) = nil, want error")
	}
}
