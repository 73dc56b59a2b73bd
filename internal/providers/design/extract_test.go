package design

import "testing"

func TestFirstImageURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "markdown image",
			in:   "Here is your design: ![after](https://cdn.example/after.png) enjoy!",
			want: "https://cdn.example/after.png",
		},
		{
			name: "markdown preferred over earlier bare url",
			in:   "source https://cdn.example/before.jpg then ![x](https://cdn.example/after.jpg)",
			want: "https://cdn.example/after.jpg",
		},
		{
			name: "bare url with image extension",
			in:   "See https://docs.example/help and https://cdn.example/result.webp for the render.",
			want: "https://cdn.example/result.webp",
		},
		{
			name: "image extension with query string",
			in:   "https://cdn.example/result.jpeg?sig=abc123",
			want: "https://cdn.example/result.jpeg?sig=abc123",
		},
		{
			name: "any bare url as last resort",
			in:   "Your render is ready at https://cdn.example/renders/42",
			want: "https://cdn.example/renders/42",
		},
		{
			name: "trailing punctuation stripped",
			in:   "Done: https://cdn.example/out.png.",
			want: "https://cdn.example/out.png",
		},
		{
			name: "no url",
			in:   "I was unable to produce an image.",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstImageURL(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
