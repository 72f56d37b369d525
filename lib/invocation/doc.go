// Copyright 2026 The Compvault Authors
// SPDX-License-Identifier: Apache-2.0

// Package invocation defines the resolved compiler invocation model
// that the capture core consumes.
//
// An Invocation is the already-parsed form of one compiler run: the
// compiler binary, the project it built, and every source, reference,
// analyzer, resource, and option the run used, with all command-line
// parsing and response-file expansion done by an external resolver.
// The capture builder treats invocations as read-only input; it never
// parses raw command lines and never runs a compiler.
//
// Resolvers hand invocation sets to the compvault CLI as JSONC files
// (JSON with comments and trailing commas, via tidwall/jsonc). The
// file is a single object:
//
//	{
//	  // produced by msbuild-resolve 1.4
//	  "invocations": [
//	    {
//	      "compilerFilePath": "/usr/share/dotnet/csc.dll",
//	      "projectFilePath": "/src/app/app.csproj",
//	      "workingDirectory": "/src/app",
//	      "language": "csharp",
//	      "targetFramework": "net9.0",
//	      "kind": "regular",
//	      "arguments": ["/noconfig", "/target:exe", "Program.cs"],
//	      "options": { ... }
//	    },
//	  ]
//	}
//
// Field names are the json struct tags on the types in this package.
// The same tags drive the CBOR encoding of the options bundle inside
// a capture archive, so the wire names are part of the archive format.
package invocation
