package export

//
// wbconn, SPARQL and claims helpers for Wikibase instances
// Copyright (C) 2020 Naypta

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.

// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikibase-connection/internal/projector"
)

func str(s string) *string { return &s }

func datasources() *projector.Table {
	return &projector.Table{
		Columns: []string{"ds", "dsLabel", "query_string"},
		Rows:    [][]*string{
			{str("https://kb.example.org/entity/Q20"), str("ScienceBase"), str("https://sb.example.org/?q=a,b")},
			{str("https://kb.example.org/entity/Q21"), str(`GNIS "names"`), nil},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, datasources()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "datasources", buf.Bytes())
}

func TestWriteCSVFileZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasources.csv.zst")
	require.NoError(t, WriteCSVFile(path, datasources()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	reader, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer reader.Close()

	var got, want bytes.Buffer
	_, err = got.ReadFrom(reader)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(&want, datasources()))
	assert.Equal(t, want.String(), got.String())
	assert.Equal(t, "application/zstd", ContentType(path))
}

func TestWriteCSVFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasources.csv")
	require.NoError(t, WriteCSVFile(path, datasources()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ds,dsLabel,query_string\n")
	assert.Equal(t, "text/csv", ContentType(path))
}

func TestWriteSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	require.NoError(t, WriteSQLite(ctx, path, "datasources", datasources()))
	// Writing again replaces the table.
	require.NoError(t, WriteSQLite(ctx, path, "datasources", datasources()))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM datasources`).Scan(&count))
	assert.Equal(t, 2, count)

	var qs sql.NullString
	require.NoError(t, db.QueryRow(`SELECT query_string FROM datasources WHERE "dsLabel" = ?`, `GNIS "names"`).Scan(&qs))
	assert.False(t, qs.Valid)
}

func TestWriteSQLiteRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	assert.Error(t, WriteSQLite(context.Background(), path, "", datasources()))
	assert.Error(t, WriteSQLite(context.Background(), path, "t", &projector.Table{}))
}

type FakeS3 struct {
	data map[string][]byte
	opts map[string]minio.PutObjectOptions
}

func NewFakeS3() *FakeS3 {
	return &FakeS3{
		data: make(map[string][]byte, 10),
		opts: make(map[string]minio.PutObjectOptions, 10),
	}
}

func (s3 *FakeS3) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	info := minio.UploadInfo{}
	if bucketName != "wbconn" {
		return info, fmt.Errorf("unexpected bucket %v", bucketName)
	}
	file, err := os.ReadFile(filePath)
	if err != nil {
		return info, err
	}
	s3.data[objectName] = file
	s3.opts[objectName] = opts
	return info, nil
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasources.csv")
	require.NoError(t, WriteCSVFile(path, datasources()))

	s3 := NewFakeS3()
	require.NoError(t, Upload(context.Background(), s3, "wbconn", "", path))
	require.NoError(t, Upload(context.Background(), s3, "wbconn", "public/ds.csv", path))

	assert.Contains(t, s3.data, "datasources.csv")
	assert.Contains(t, s3.data, "public/ds.csv")
	assert.Equal(t, "text/csv", s3.opts["public/ds.csv"].ContentType)

	err := Upload(context.Background(), s3, "other", "", path)
	assert.ErrorContains(t, err, "other")
}

func TestNewS3(t *testing.T) {
	keypath := filepath.Join(t.TempDir(), "s3.json")
	require.NoError(t, os.WriteFile(keypath, []byte(`{"Endpoint": "s3.example.org", "Key": "k", "Secret": "s"}`), 0600))
	client, err := NewS3(keypath)
	require.NoError(t, err)
	assert.Equal(t, "s3.example.org", client.EndpointURL().Host)

	require.NoError(t, os.WriteFile(keypath, []byte(`not json`), 0600))
	_, err = NewS3(keypath)
	assert.Error(t, err)
}
