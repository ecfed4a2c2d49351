package domain

import (
	"reflect"
	"testing"
)

func TestExtractEmails(t *testing.T) {
	tests := []struct {
		name  string
		blobs []string
		want  []string
	}{
		{
			name:  "plain address",
			blobs: []string{"contact us at team@example.com for business"},
			want:  []string{"team@example.com"},
		},
		{
			name:  "case variants collapse to one lower-cased value",
			blobs: []string{"A@x.com and a@x.com", "again a@x.com"},
			want:  []string{"a@x.com"},
		},
		{
			name:  "bracket obfuscation",
			blobs: []string{"biz [at] channel [dot] io"},
			want:  []string{"biz@channel.io"},
		},
		{
			name:  "paren obfuscation",
			blobs: []string{"promo (at) creator (dot) com"},
			want:  []string{"promo@creator.com"},
		},
		{
			name:  "word obfuscation",
			blobs: []string{"write to admin at example dot org"},
			want:  []string{"admin@example.org"},
		},
		{
			name:  "multiple sorted",
			blobs: []string{"b@x.com", "a@x.com c@y.net"},
			want:  []string{"a@x.com", "b@x.com", "c@y.net"},
		},
		{
			name:  "no emails",
			blobs: []string{"subscribe and hit the bell"},
			want:  nil,
		},
		{
			name:  "empty blobs ignored",
			blobs: []string{"", "team@example.com", ""},
			want:  []string{"team@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractEmails(tt.blobs...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractEmails() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeEmails(t *testing.T) {
	got := MergeEmails([]string{"B@x.com", "a@x.com"}, []string{"a@x.com", "c@y.net"})
	want := []string{"a@x.com", "b@x.com", "c@y.net"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeEmails() = %v, want %v", got, want)
	}
}

func TestExtractTelegram(t *testing.T) {
	tests := []struct {
		name  string
		blobs []string
		want  string
	}{
		{
			name:  "t.me link",
			blobs: []string{"join https://t.me/SomeHandle today"},
			want:  "@somehandle",
		},
		{
			name:  "t.me link without scheme",
			blobs: []string{"t.me/SomeHandle"},
			want:  "@somehandle",
		},
		{
			name:  "telegram.me link",
			blobs: []string{"https://telegram.me/SomeHandle"},
			want:  "@somehandle",
		},
		{
			name:  "bare mention",
			blobs: []string{"dm me @SomeHandle"},
			want:  "@somehandle",
		},
		{
			name:  "labeled handle",
			blobs: []string{"SomeHandle (telegram)"},
			want:  "@somehandle",
		},
		{
			name:  "link wins over mention",
			blobs: []string{"@other t.me/PrimaryChan"},
			want:  "@primarychan",
		},
		{
			name:  "email local part is not a handle",
			blobs: []string{"write to team@example.com"},
			want:  "",
		},
		{
			name:  "joinchat links are not handles",
			blobs: []string{"https://t.me/joinchat"},
			want:  "",
		},
		{
			name:  "too short",
			blobs: []string{"@abc"},
			want:  "",
		},
		{
			name:  "nothing",
			blobs: []string{"like and subscribe"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTelegram(tt.blobs...); got != tt.want {
				t.Errorf("ExtractTelegram() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTelegramHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SomeHandle", "@somehandle"},
		{"@SomeHandle", "@somehandle"},
		{"  @SomeHandle ", "@somehandle"},
		{"abc", ""},      // too short
		{"joinchat", ""}, // reserved
	}
	for _, tt := range tests {
		if got := NormalizeTelegramHandle(tt.in); got != tt.want {
			t.Errorf("NormalizeTelegramHandle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
