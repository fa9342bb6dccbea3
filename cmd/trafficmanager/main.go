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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog"

	"github.com/lzhecheng/kubetest2-trafficmanager/deployer"
)

func main() {
	d, flags := deployer.New()
	if err := flags.Parse(os.Args[1:]); err != nil {
		klog.Fatalf("failed to parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	klog.Infof("Running %s %s", deployer.Name, d.Version())
	if err := d.Run(ctx); err != nil {
		klog.Errorf("%s failed: %v", deployer.Name, err)
		klog.Flush()
		stop()
		os.Exit(1)
	}
	klog.Flush()
}
