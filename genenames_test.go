// Copyright (C) The Sparsenet Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package sparsenet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"gopkg.in/check.v1"
)

type geneNamesSuite struct{}

var _ = check.Suite(&geneNamesSuite{})

func (s *geneNamesSuite) TestResolve(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c.Check(req.Method, check.Equals, "POST")
		c.Check(req.FormValue("query"), check.Matches, `(?s).*ENSG00000141510,ENSG00000136997.*`)
		w.Write([]byte("TP53\tENSG00000141510\nMYC\tENSG00000136997\n"))
	}))
	defer srv.Close()

	r := &NameResolver{MartURL: srv.URL}
	table := r.Resolve(context.Background(), []string{"ENSG00000141510", "ENSG00000136997"})
	c.Check(table.Source, check.Equals, SourceLookup)
	// sorted by display name
	c.Check(table.Rows, check.DeepEquals, []GeneName{
		{EnsemblGeneID: "ENSG00000136997", ExternalGeneName: "MYC"},
		{EnsemblGeneID: "ENSG00000141510", ExternalGeneName: "TP53"},
	})
}

func (s *geneNamesSuite) TestResolveMissingIDKeepsInput(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("TP53\tENSG00000141510\n"))
	}))
	defer srv.Close()

	r := &NameResolver{MartURL: srv.URL}
	table := r.Resolve(context.Background(), []string{"ENSG00000141510", "ENSG00000000000"})
	c.Check(table.Source, check.Equals, SourceLookup)
	c.Check(table.Rows, check.DeepEquals, []GeneName{
		{EnsemblGeneID: "ENSG00000000000", ExternalGeneName: "ENSG00000000000"},
		{EnsemblGeneID: "ENSG00000141510", ExternalGeneName: "TP53"},
	})
}

func (s *geneNamesSuite) TestFallbackUnreachable(c *check.C) {
	// port 1 refuses connections
	r := &NameResolver{MartURL: "http://127.0.0.1:1/biomart/martservice"}
	table := r.Resolve(context.Background(), []string{"X1", "X2"})
	c.Check(table.Source, check.Equals, SourceFallback)
	// identity rows, original order
	c.Check(table.Rows, check.DeepEquals, []GeneName{
		{EnsemblGeneID: "X1", ExternalGeneName: "X1"},
		{EnsemblGeneID: "X2", ExternalGeneName: "X2"},
	})
}

func (s *geneNamesSuite) TestFallbackMalformed(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("Query ERROR: caught BioMart::Exception\n"))
	}))
	defer srv.Close()

	r := &NameResolver{MartURL: srv.URL}
	table := r.Resolve(context.Background(), []string{"X1"})
	c.Check(table.Source, check.Equals, SourceFallback)
	c.Check(table.Rows, check.DeepEquals, []GeneName{{EnsemblGeneID: "X1", ExternalGeneName: "X1"}})
}

func (s *geneNamesSuite) TestMemoization(c *check.C) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte("TP53\tENSG00000141510\n"))
	}))
	defer srv.Close()

	r := &NameResolver{MartURL: srv.URL}
	t1 := r.Resolve(context.Background(), []string{"ENSG00000141510"})
	t2 := r.Resolve(context.Background(), []string{"ENSG00000141510"})
	c.Check(atomic.LoadInt64(&calls), check.Equals, int64(1))
	c.Check(t1, check.Equals, t2)
	// a different list is a different cache entry
	r.Resolve(context.Background(), []string{"ENSG00000141510", "ENSG00000136997"})
	c.Check(atomic.LoadInt64(&calls), check.Equals, int64(2))
}
