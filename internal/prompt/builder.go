// File: internal/prompt/builder.go

// Package prompt builds the task-specific instruction text and assembles the
// ordered multimodal payload for a backend invocation. Each task has a fixed
// template; the audit task selects one of three mutually exclusive templates
// based on the input shape. Templates for grounded calls embed the expected
// JSON shape as literal instructions, because schema enforcement is
// unavailable in that mode.
package prompt

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/circuitscope-cli/api/schemas"
)

// Bundle is the assembled payload for one invocation: instruction text first,
// then the primary diagram, then the optional supporting document.
type Bundle struct {
	Instruction string
	Parts       []schemas.PromptPart
}

const fence = "```"

// Build constructs the prompt bundle for a task request. It fails only on
// structurally invalid input (missing schematic or empty query), never on the
// content of the free-text parameters.
func Build(req schemas.TaskRequest) (Bundle, error) {
	var instruction string

	switch req.Kind {
	case schemas.TaskAudit:
		if req.Schematic == nil {
			return Bundle{}, fmt.Errorf("audit requires a schematic attachment")
		}
		instruction = auditInstruction(req.Params, req.Datasheet != nil)
	case schemas.TaskBOM:
		if req.Schematic == nil {
			return Bundle{}, fmt.Errorf("bom extraction requires a schematic attachment")
		}
		instruction = bomInstruction()
	case schemas.TaskPartSearch:
		if strings.TrimSpace(req.Params.Query) == "" {
			return Bundle{}, fmt.Errorf("part search requires a query")
		}
		instruction = partSearchInstruction(req.Params)
	case schemas.TaskFirmware:
		if req.Schematic == nil {
			return Bundle{}, fmt.Errorf("firmware generation requires a schematic attachment")
		}
		instruction = firmwareInstruction(req.Params)
	default:
		return Bundle{}, fmt.Errorf("unknown task kind %q", req.Kind)
	}

	parts := []schemas.PromptPart{{Text: instruction}}
	if req.Schematic != nil {
		parts = append(parts, schemas.PromptPart{Attachment: req.Schematic})
	}
	if req.Datasheet != nil {
		parts = append(parts, schemas.PromptPart{Attachment: req.Datasheet})
	}

	return Bundle{Instruction: instruction, Parts: parts}, nil
}

// auditInstruction selects one of the three audit templates:
// full scan (no target part), document reasoning (target part plus attached
// datasheet), or grounded search (target part only).
func auditInstruction(p schemas.TaskParams, hasDatasheet bool) string {
	switch {
	case p.TargetPart == "":
		return auditFullScan(p.Notes)
	case hasDatasheet:
		return auditWithDatasheet(p.TargetPart, p.Notes)
	default:
		return auditGroundedSearch(p.TargetPart, p.Notes)
	}
}

func auditFullScan(notes string) string {
	return fmt.Sprintf(`You are a Senior Electrical Engineer and Hardware Auditor.

Inputs:
1. A Schematic Diagram (PDF or Image).
2. User Notes: %q

Task:
Perform a comprehensive audit of the provided schematic. This is a multi-step
process; execute it page by page, in order.

1. **Component Extraction**: Scan the schematic and identify the MAIN
   Integrated Circuits (ICs), Microcontrollers, Processors, and complex chips.
   - Ignore passive components (resistors, capacitors) unless they are
     critical decoupling or sensing elements attached to a main IC.

2. **Online Verification (Auto-Search)**:
   - For EACH identified main component, use Google Search to find its
     datasheet or pinout data (prioritize DigiKey, Mouser, Manufacturer PDFs).
   - Verify that the schematic symbol matches the real-world component
     (pin count, pin names).
   - Find an image URL of the part's pinout or symbol if possible.

3. **Circuit Audit**:
   - Verify power connections (VCC/GND/VDD/VSS). Are they connected?
   - Verify decoupling. Are capacitors present near power pins?
   - Verify control pins (Reset, Enable, Boot0, etc.). Are they pulled
     up/down correctly?
   - Check for any floating inputs that should be tied.
   - If you find an error, identify the spatial location (bounding box) on
     the schematic.

%s`, notes, auditShapeInstruction(false))
}

func auditWithDatasheet(targetPart, notes string) string {
	return fmt.Sprintf(`You are a Senior Electrical Engineer and Hardware Design Auditor.
Your task is to verify an electronic schematic against a component datasheet.

Inputs:
1. Schematic Diagram (Image/PDF).
2. The Datasheet (Document/Image).
3. Target Part Number: %s
4. User notes: %q

Task:
Scan the provided datasheet document to find the pinout configuration,
absolute maximum ratings, and recommended operating conditions for the part
%q. Then analyze the schematic connections in the provided file.

Verify the following:
- Pinout validation: do the schematic pin numbers and labels match the datasheet?
- Power connections: are VCC/GND connected correctly?
- Decoupling: are capacitors present as recommended by the datasheet?
- Unused pins: are specific pins (like Reset, Enable, NC) handled correctly?
- If you find an ERROR, you MUST provide the 'boundingBox' [ymin, xmin, ymax, xmax]
  for the schematic error and extract the 'correctData' from the datasheet.

Output Format: JSON.`, targetPart, notes, targetPart)
}

func auditGroundedSearch(targetPart, notes string) string {
	return fmt.Sprintf(`You are a Senior Electrical Engineer. The user has provided a schematic but NOT the datasheet.

Inputs:
1. Schematic Diagram (Image/PDF).
2. Target Part Number: %q (CRITICAL).
3. User notes: %q

Task:
1. Use Google Search to find the pinout, datasheet, or symbol information for
   the part number %q.
   - Prioritize reliable distributors like **DigiKey**, **Mouser**,
     **Farnell**, or the manufacturer's official PDF.
   - Find an image URL of the component's official pinout or symbol.

2. **VERIFICATION STEP (CRITICAL):**
   - Compare the pinout found online with the symbol shown in the schematic image.
   - Check: does the pin count match? Do the visible pin labels match?
   - IF the part found online is significantly different from the schematic
     symbol (e.g. schematic shows 8 pins, datasheet has 14, or labels don't
     match), assume the search found the wrong variant or the schematic is
     using a custom symbol.
   - IN CASE OF MISMATCH or if you cannot find reliable data: set
     "missingDatasheet" to true in the JSON response and stop.

3. If the data matches:
   - Compare the schematic image against the pinout information you found.
   - Verify: power pins (VCC/GND), signal names, floating pins, decoupling.
   - If there is an error: calculate the boundingBox [ymin, xmin, ymax, xmax].

%s`, targetPart, notes, targetPart, auditShapeInstruction(true))
}

// auditShapeInstruction spells out the exact JSON shape for the grounded
// audit templates, where schema enforcement is unavailable.
func auditShapeInstruction(perPart bool) string {
	sectionHint := `      // Create one section PER MAIN COMPONENT found.`
	if perPart {
		sectionHint = `      // One section per verified aspect of the target part.`
	}
	return fmt.Sprintf(`**CRITICAL OUTPUT INSTRUCTION:**
Return the result as a valid JSON object strictly following this structure
inside a markdown code block (%[1]sjson ... %[1]s):
{
  "summary": "A high-level summary of the audit and the overall health of the design.",
  "missingDatasheet": false, // Set to true if mismatch or not found
  "sections": [
%[2]s
    {
      "title": "[Part Number] Verification",
      "status": "pass" | "fail" | "warning" | "info",
      "content": "Details about power, connections, and any errors found.",
      "boundingBox": [ymin, xmin, ymax, xmax], // 0-1000 scale. Required if status is fail/warning.
      "datasheetImageUri": "https://...", // URL to an image of the pinout found online
      "correctData": "Markdown table of the correct pinout or specs"
    }
  ],
  "suggestedFixes": ["Global list of fix recommendations"]
}`, fence, sectionHint)
}

func bomInstruction() string {
	return fmt.Sprintf(`You are a Manufacturing Engineer and Procurement Specialist.

Input: an electronic schematic image/PDF.

Task:
1. **Extract BOM**: Identify EVERY component in the schematic.
   - Group by unique part number / value.
   - List the designators (e.g. R1, R2, R3).
   - Count the total quantity for each.

2. **Cost Estimation**:
   - Use Google Search to find the *average unit price* for each component (in USD).
   - Source prices from major distributors (DigiKey, Mouser, LCSC).

3. **CAD & Footprint Discovery**:
   - Your goal is to find a URL where the user can download the 3D model
     (STEP/IGES) or PCB footprint.
   - **Prioritize landing pages**: it is often hard to find a direct .zip or
     .step link. Instead, find the search result URL or product page URL on
     major repositories.
   - Look for URLs on: **SnapEDA**, **UltraLibrarian**,
     **ComponentSearchEngine**, **Octopart**, **DigiKey (EDA/CAD Models section)**.

Output Format:
Return a VALID JSON object in a markdown code block (%[1]sjson ... %[1]s).
Structure:
{
  "items": [
    {
      "partNumber": "string",
      "description": "string",
      "manufacturer": "string",
      "quantity": number,
      "designators": "string",
      "estimatedUnitPrice": number,
      "totalPrice": number,
      "cadLinks": {
        "model3d": "url string (the best link you found for 3D or the product page)",
        "footprint": "url string (optional, if distinct from model3d)"
      }
    }
  ],
  "totalEstimatedCost": number,
  "currency": "USD"
}`, fence)
}

func partSearchInstruction(p schemas.TaskParams) string {
	var wants []string
	if p.WantDatasheet {
		wants = append(wants, "- The Datasheet PDF URL.")
	}
	if p.WantCAD {
		wants = append(wants, "- 3D CAD Models and Footprints (SnapEDA, UltraLibrarian, etc).")
	}
	if p.WantPricing {
		wants = append(wants, "- Pricing and stock from major distributors (DigiKey, Mouser).")
	}

	return fmt.Sprintf(`You are an Electronic Components Procurement Assistant.

Task: find detailed information for the component: %q.

The user is specifically asking for:
%s

1. **Overview**: Find the manufacturer and a short technical description.
2. **Specs**: Extract key technical specs (e.g. supply voltage, package, current, pin count).
3. **Image**: Find a URL for an image of the part.
4. **Alternatives**: Suggest 2-3 compatible replacement part numbers.

Output strictly valid JSON in a markdown code block (%[3]sjson ... %[3]s).
Structure:
{
  "partNumber": "string",
  "manufacturer": "string",
  "description": "string",
  "imageUri": "url string",
  "specs": { "Key": "Value", "Vmax": "5.5V" },
  "datasheetUri": "url string",
  "cadLinks": {
    "model3d": "url string (prioritize landing page)",
    "footprint": "url string",
    "provider": "e.g. SnapEDA"
  },
  "pricing": [
    { "distributor": "DigiKey", "price": "$1.20", "stock": "1000", "link": "url" }
  ],
  "alternatives": ["string", "string"]
}`, p.Query, strings.Join(wants, "\n"), fence)
}

func firmwareInstruction(p schemas.TaskParams) string {
	return fmt.Sprintf(`You are an Embedded Systems Engineer.

Input: an electronic schematic image/PDF.
User Notes: %q
User Defined Pin Mapping: %q

Task:
1. **Analyze Schematic & Mapping**:
   - FIRST, check the "User Defined Pin Mapping" provided above. Treat these
     connections as the absolute truth.
   - SECOND, for any connections not specified by the user, analyze the
     schematic image to find how the microcontroller is connected to
     peripherals (LEDs, sensors, buttons).

2. **Generate Firmware**:
   - Write a complete, ready-to-compile driver or main file to initialize
     these peripherals.
   - Use the most common framework for the identified MCU (e.g. HAL for
     STM32, Arduino for AVR/ESP32).
   - If no MCU is clear, assume Arduino C++ format.
   - **IMPORTANT**: Include comments explicitly stating which connections came
     from user input vs schematic analysis.

Output strictly valid JSON.
Structure:
{
  "filename": "main.c", // or main.cpp, main.py
  "language": "c", // or cpp, python
  "architecture": "STM32 HAL", // or Arduino, ESP-IDF
  "description": "Short explanation of what the code does.",
  "code": "Full source code string (escaped correctly)"
}`, p.Notes, p.PinMapping)
}
