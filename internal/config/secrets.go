/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService = "vnscript"
	keyringDSN     = "publish_dsn"
)

// SecretStore abstracts the keyring so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var secretStore SecretStore = osKeyring{}

// SetSecretStore swaps the store and returns a func restoring the previous one.
func SetSecretStore(s SecretStore) (restore func()) {
	prev := secretStore
	secretStore = s
	return func() { secretStore = prev }
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// PublishDSN returns the Postgres DSN used by publish. VNS_PG_DSN wins over the keyring.
// An absent secret is not an error: it yields "".
func PublishDSN() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvPublishDSN)); v != "" {
		return v, nil
	}
	dsn, err := secretStore.Get(keyringService, keyringDSN)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return dsn, err
}

// SetPublishDSN stores dsn in the keyring. An empty dsn clears it.
func SetPublishDSN(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ClearPublishDSN()
	}
	return secretStore.Set(keyringService, keyringDSN, dsn)
}

// ClearPublishDSN removes the stored DSN; clearing an absent one succeeds.
func ClearPublishDSN() error {
	if err := secretStore.Delete(keyringService, keyringDSN); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
