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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 is the subset of minio.Client used for uploads. FakeS3 in the tests
// implements it.
type S3 interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewS3 sets up a client for S3-compatible object storage. keypath names a
// JSON file with Endpoint, Key and Secret.
func NewS3(keypath string) (*minio.Client, error) {
	data, err := os.ReadFile(keypath)
	if err != nil {
		return nil, err
	}

	var config struct{ Endpoint, Key, Secret string }
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", keypath, err)
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Key, config.Secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, err
	}
	client.SetAppInfo("wbconn", "1.0")
	return client, nil
}

// Upload stores file in bucket. An empty dest uses the file's base name.
func Upload(ctx context.Context, s3 S3, bucket, dest, file string) error {
	if dest == "" {
		dest = filepath.Base(file)
	}
	options := minio.PutObjectOptions{ContentType: ContentType(file)}
	if _, err := s3.FPutObject(ctx, bucket, dest, file, options); err != nil {
		return fmt.Errorf("failed to upload %s to %s/%s: %w", file, bucket, dest, err)
	}
	return nil
}
