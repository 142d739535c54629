package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPyPackages(t *testing.T) {
	content := retractSourceContent(`#!/usr/bin/env python
import os
import requests, numpy as np
from django.db import models
from . import sibling
from .relative import thing
import flask.views
x = 1
import foo \
    .bar
`)

	got := ExtractPyPackages(content)
	require.Equal(t, map[string]struct{}{
		"os":       {},
		"requests": {},
		"numpy":    {},
		"django":   {},
		"flask":    {},
		"foo":      {},
	}, got)
}

func TestExtractReqPackages(t *testing.T) {
	content := retractRequirementContent(`# comment
Flask==2.0.1
requests[security]>=2.20  # pinned for CVE
-e .
-r other.txt

numpy
`)

	got := ExtractReqPackages(content)
	require.Equal(t, map[string]struct{}{
		"flask":    {},
		"requests": {},
		"numpy":    {},
	}, got)
}

func TestPkgnamesFromStatement_RelativeImportsExcluded(t *testing.T) {
	require.Empty(t, pkgnamesFromStatement("from . import sibling"))
	require.Empty(t, pkgnamesFromStatement("import .relative"))
}
