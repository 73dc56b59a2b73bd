package vision

import "testing"

func TestExtractJSONFragment(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			in:   `{"spaceType":"backyard"}`,
			want: `{"spaceType":"backyard"}`,
			ok:   true,
		},
		{
			name: "object wrapped in prose",
			in:   "Here is the analysis you asked for:\n{\"size\":\"small\"}\nHope that helps!",
			want: `{"size":"small"}`,
			ok:   true,
		},
		{
			name: "json code fence",
			in:   "```json\n{\"size\":\"large\"}\n```",
			want: `{"size":"large"}`,
			ok:   true,
		},
		{
			name: "nested braces",
			in:   `prefix {"a":{"b":{"c":1}}} suffix`,
			want: `{"a":{"b":{"c":1}}}`,
			ok:   true,
		},
		{
			name: "brace inside string value",
			in:   `{"note":"contains } brace","n":1} trailing`,
			want: `{"note":"contains } brace","n":1}`,
			ok:   true,
		},
		{
			name: "escaped quote inside string",
			in:   `{"note":"she said \"hi\" {","n":2}`,
			want: `{"note":"she said \"hi\" {","n":2}`,
			ok:   true,
		},
		{
			name: "no braces at all",
			in:   "I cannot produce structured output for this image.",
			ok:   false,
		},
		{
			name: "unbalanced object",
			in:   `{"spaceType":"backyard"`,
			ok:   false,
		},
		{
			name: "empty input",
			in:   "",
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSONFragment(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("fragment = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTrimCodeFence(t *testing.T) {
	if got := trimCodeFence("```JSON\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
	if got := trimCodeFence("no fence here"); got != "no fence here" {
		t.Fatalf("got %q", got)
	}
}
