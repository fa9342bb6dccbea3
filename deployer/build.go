/*
Copyright 2022 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package deployer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pkcs12"
	"k8s.io/klog"

	"sigs.k8s.io/kubetest2/pkg/exec"
)

var (
	defaultCertScript = "hack/create-cert.sh"
	defaultOutputDir  = "_output/trafficmanager"
	pfxFileName       = "webapp_managetrafficmanager.pfx"
)

func runCmd(cmd exec.Cmd) error {
	exec.InheritOutput(cmd)
	return cmd.Run()
}

// resolveCertScript returns an absolute path to script. A relative script is
// looked up in the working directory first and then next to the executable.
func resolveCertScript(script string) (string, error) {
	if script == "" {
		return "", fmt.Errorf("certificate script must be set")
	}
	candidates := []string{script}
	if !filepath.IsAbs(script) {
		if exe, err := os.Executable(); err == nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(exe), script))
		}
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", fmt.Errorf("certificate script %q not found in the working directory or next to the executable, set --cert-script", script)
}

// generateCertificate runs script to write a self-signed PFX for domain to
// pfxPath, protected by password. A non-zero exit is an error.
func generateCertificate(script, domain, pfxPath, password string) error {
	if err := os.MkdirAll(filepath.Dir(pfxPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to mkdir the certificate output dir: %v", err)
	}
	klog.Infof("Creating a self-signed certificate %s...", pfxPath)
	if err := runCmd(exec.Command(script, domain, pfxPath, password)); err != nil {
		return fmt.Errorf("failed to run certificate script %q: %v", script, err)
	}
	klog.Infof("Created self-signed certificate %s", pfxPath)
	return nil
}

// loadCertificate reads the PFX at path and checks it opens with password.
// The returned bytes are the blob uploaded to App Service.
func loadCertificate(path, password string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate at %q: %v", path, err)
	}
	_, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate at %q: %v", path, err)
	}
	klog.Infof("Certificate %q issued to %q, valid until %s", path, cert.Subject.CommonName, cert.NotAfter.Format(time.RFC3339))
	return data, nil
}

// buildCertificate generates the run's certificate and returns the PFX blob.
func (d *Deployer) buildCertificate(domain string) ([]byte, error) {
	pfxPath := filepath.Join(d.OutputDir, pfxFileName)
	if err := generateCertificate(d.CertScript, domain, pfxPath, d.CertPassword); err != nil {
		return nil, err
	}
	return loadCertificate(pfxPath, d.CertPassword)
}
