// Package prompts builds the instruction text sent to LLM providers for each
// generation phase. Every prompt that feeds the JSON pipeline ends with an
// explicit JSON-only directive; providers still violate it often enough that
// the recovery layer exists.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AppSpec describes the application a caller asked for.
type AppSpec struct {
	Description     string
	Framework       string
	Styling         string
	Features        []string
	IncludeAPI      bool
	IncludeDatabase bool
	IncludeAuth     bool
}

func (s AppSpec) featureText() string {
	if len(s.Features) == 0 {
		return "basic CRUD operations"
	}
	return strings.Join(s.Features, ", ")
}

func yesNo(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// section renders a fragment of a parsed architecture document back to JSON
// for embedding in a follow-up prompt. Missing keys render as an empty object
// so the prompt stays well-formed.
func section(doc map[string]interface{}, keys ...string) string {
	cur := interface{}(doc)
	for _, k := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return "{}"
		}
		cur, ok = m[k]
		if !ok {
			return "{}"
		}
	}
	out, err := json.Marshal(cur)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Architecture is the planning-phase prompt. The responding model must emit a
// JSON document covering frontend, backend, database schema, API design,
// security, and file structure.
func Architecture(spec AppSpec) string {
	return fmt.Sprintf(`You are an elite software architect. Analyze this project and create a comprehensive technical architecture.

**Project:** %s
**Stack:** %s + %s
**Features:** %s
**Backend:** %s
**Database:** %s
**Auth:** %s

**Your Task: Create Technical Architecture**

Return a JSON object with this structure:
{
    "architecture": {
        "frontend": {
            "framework": "%s",
            "components": ["ComponentName with description"],
            "state_management": "approach (context/redux/zustand)",
            "routing": "routing strategy",
            "api_layer": "how frontend calls backend"
        },
        "backend": {
            "framework": "Express/FastAPI/Flask",
            "language": "TypeScript/Python",
            "endpoints": [
                {"method": "GET", "path": "/api/resource", "purpose": "...", "auth_required": true}
            ],
            "middleware": ["auth", "cors", "error-handling"],
            "validation": "approach for input validation"
        },
        "database": {
            "type": "PostgreSQL",
            "schema": {
                "tables": [
                    {
                        "name": "users",
                        "columns": [
                            {"name": "id", "type": "UUID", "constraints": ["PRIMARY KEY"]}
                        ],
                        "indexes": ["email_idx ON (email)"],
                        "relations": ["foreign key to other_table"]
                    }
                ]
            },
            "migrations": "migration strategy"
        },
        "api_design": {
            "base_url": "/api/v1",
            "response_format": "standard JSON structure",
            "error_handling": "error response format",
            "pagination": "pagination strategy"
        },
        "security": {
            "authentication": "JWT strategy",
            "authorization": "role-based access control",
            "input_validation": "validation approach",
            "rate_limiting": "rate limit strategy",
            "cors": "CORS configuration"
        }
    },
    "file_structure": {
        "frontend": ["path/to/file.tsx - purpose"],
        "backend": ["path/to/file.ts - purpose"],
        "configs": ["docker-compose.yml - orchestration"]
    },
    "tech_decisions": ["Why choice X over Y"],
    "implementation_notes": ["Important considerations for the next phase"]
}

**Critical:** Return ONLY valid JSON, no markdown, no explanations.`,
		spec.Description,
		spec.Framework, spec.Styling,
		spec.featureText(),
		yesNo(spec.IncludeAPI, "Yes - RESTful API", "No"),
		yesNo(spec.IncludeDatabase, "PostgreSQL", "None"),
		yesNo(spec.IncludeAuth, "JWT-based authentication", "None"),
		spec.Framework,
	)
}

// Frontend is the frontend code-generation prompt, fed with the architecture
// document from the planning phase.
func Frontend(spec AppSpec, architecture map[string]interface{}) string {
	return fmt.Sprintf(`You are an expert frontend developer. Generate COMPLETE production-ready frontend code.

**Architecture Plan:**
%s

**Project:** %s
**Framework:** %s
**Styling:** %s

**Files to Generate:**
%s

**Requirements:**
1. Generate ALL source files completely (NO placeholders like "// Add more code")
2. Follow the architecture plan exactly
3. Use TypeScript with proper types
4. Include comprehensive error handling
5. Add loading states and user feedback
6. Implement responsive design
7. Add proper form validation
8. Use modern best practices (hooks, functional components)
9. Make it production-ready

**Output Format:**
Return a JSON object:
{
    "files": [
        {"path": "src/App.tsx", "content": "import React from 'react';", "language": "typescript"}
    ],
    "dependencies": {"react": "^18.3.1"},
    "devDependencies": {"@types/react": "^18.3.0"},
    "scripts": {"dev": "vite", "build": "tsc && vite build"}
}

**CRITICAL:** Every file must be COMPLETE with real implementation, not skeletons!
Return ONLY valid JSON.`,
		section(architecture, "architecture", "frontend"),
		spec.Description,
		spec.Framework,
		spec.Styling,
		section(architecture, "file_structure", "frontend"),
	)
}

// Backend is the backend code-generation prompt. The response carries the
// database schema alongside the files so the provisioning phase can run it.
func Backend(spec AppSpec, architecture map[string]interface{}) string {
	return fmt.Sprintf(`You are an expert backend developer. Generate COMPLETE production-ready backend API.

**Architecture Plan:**
Backend: %s
Database: %s
API Design: %s

**Project:** %s

**API Endpoints to Implement:**
%s

**Requirements:**
1. Generate COMPLETE API with ALL endpoints implemented
2. Implement proper authentication/authorization
3. Add input validation and error handling
4. Include database models and migrations
5. Add rate limiting and security middleware
6. Create database connection pooling
7. Make it production-ready

**Output Format:**
Return JSON:
{
    "files": [
        {"path": "server/src/index.ts", "content": "import express from 'express';", "language": "typescript"}
    ],
    "database_schema": "CREATE TABLE users (...); CREATE INDEX ...",
    "dependencies": {"express": "^4.19.0", "pg": "^8.12.0"},
    "requires_database": true,
    "deployment_config": {
        "environment_variables": ["DATABASE_URL", "JWT_SECRET"],
        "health_check_endpoint": "/health"
    }
}

**CRITICAL:** Implement EVERY endpoint completely and make it immediately deployable.
Return ONLY valid JSON.`,
		section(architecture, "architecture", "backend"),
		section(architecture, "architecture", "database"),
		section(architecture, "architecture", "api_design"),
		spec.Description,
		section(architecture, "architecture", "backend", "endpoints"),
	)
}

// Integration is the cross-check prompt run after both code phases. It sees
// file counts rather than full contents to keep the context window bounded.
func Integration(frontendFiles, backendFiles int, architecture map[string]interface{}) string {
	return fmt.Sprintf(`You are a full-stack integration expert. Ensure frontend and backend work together perfectly.

**Frontend Files:** %d files
**Backend Files:** %d files
**Architecture:** %s

**Review and Fix:**
1. API endpoints match between frontend and backend
2. Environment variables are consistent
3. CORS is configured properly
4. Authentication flow works end-to-end
5. Error handling is consistent
6. Docker compose orchestrates everything

**Output:**
Return JSON:
{
    "integration_fixes": [
        {"file": "path/to/file", "change": "what to fix", "reason": "why"}
    ],
    "docker_compose": "Complete docker-compose.yml content for the full stack",
    "setup_instructions": "Step-by-step guide to get everything running",
    "test_endpoints": [
        {"name": "Test user registration", "curl": "curl -X POST ..."}
    ]
}

Return ONLY valid JSON.`,
		frontendFiles, backendFiles, section(architecture, "architecture"),
	)
}

// SinglePassApp is the one-shot prompt for the synchronous app endpoint,
// which generates a complete small application in a single provider call.
func SinglePassApp(spec AppSpec) string {
	return fmt.Sprintf(`You are an expert full-stack developer. Generate a complete, working web application.

**Project:** %s
**Framework:** %s
**Styling:** %s
**Features:** %s
**Database:** %s
**Auth:** %s

Generate every file the app needs, with complete real implementations and no placeholders.

**Output Format:**
Return JSON:
{
    "files": [
        {"path": "src/App.tsx", "content": "...", "language": "typescript"}
    ],
    "instructions": "how to run the app",
    "dependencies": {"react": "^18.3.1"},
    "requires_database": false,
    "database_schema": ""
}

Return ONLY valid JSON.`,
		spec.Description,
		spec.Framework,
		spec.Styling,
		spec.featureText(),
		yesNo(spec.IncludeDatabase, "PostgreSQL", "None"),
		yesNo(spec.IncludeAuth, "JWT-based authentication", "None"),
	)
}
