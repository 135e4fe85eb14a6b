package eml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestNormaliser_Interface(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"message/rfc822"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())
}

func TestNormalise_PlainMessage(t *testing.T) {
	msg := crlf(`From: Ops <ops@example.com>
To: team@example.com
Date: Mon, 2 Jun 2025 10:00:00 +0000
Subject: =?UTF-8?Q?Retry_policy_=E2=9C=93?=

The embedding client now backs off exponentially.
`)

	text, err := New().Normalise(context.Background(), "retry.eml", msg)

	require.NoError(t, err)
	assert.Equal(t, "From: Ops <ops@example.com>\n"+
		"To: team@example.com\n"+
		"Date: Mon, 2 Jun 2025 10:00:00 +0000\n"+
		"Subject: Retry policy ✓\n\n"+
		"The embedding client now backs off exponentially.", text)
}

func TestNormalise_MultipartPrefersPlain(t *testing.T) {
	msg := crlf(`Subject: Release
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/html

<p>HTML <b>version</b></p>
--b1
Content-Type: text/plain
Content-Transfer-Encoding: quoted-printable

Plain version with a soft=
 break
--b1--
`)

	text, err := New().Normalise(context.Background(), "release.eml", msg)

	require.NoError(t, err)
	assert.Equal(t, "Subject: Release\n\nPlain version with a soft break", text)
}

func TestNormalise_NestedHTMLOnly(t *testing.T) {
	msg := crlf(`Subject: Notes
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/html

<div>Indexed <i>nightly</i></div>
--inner--
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"

%PDF-1.4
--outer--
`)

	text, err := New().Normalise(context.Background(), "notes.eml", msg)

	require.NoError(t, err)
	assert.Equal(t, "Subject: Notes\n\nIndexed nightly", text)
}

func TestNormalise_Invalid(t *testing.T) {
	_, err := New().Normalise(context.Background(), "bad.eml", []byte("no headers here"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedContent)

	_, err = New().Normalise(context.Background(), "bad.eml",
		crlf("Subject: x\nContent-Type: multipart/mixed\n\nbody\n"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedContent)
}
