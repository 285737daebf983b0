package heuristics

var defaultAutoExec = []Rule{
	{"AutoExec", "Runs when the Word document is opened"},
	{"AutoOpen", "Runs when the Word document is opened"},
	{"Document_Open", "Runs when the Word or Publisher document is opened"},
	{"DocumentOpen", "Runs when the Word document is opened"},
	{"Auto_Open", "Runs when the Excel Workbook is opened"},
	{"Workbook_Open", "Runs when the Excel Workbook is opened"},
	{"Workbook_Activate", "Runs when the Excel Workbook is activated"},
	{"Workbook_WindowActivate", "Runs when the Excel Workbook window is activated"},
	{"AutoClose", "Runs when the Word document is closed"},
	{"Document_Close", "Runs when the Word document is closed"},
	{"Auto_Close", "Runs when the Excel Workbook is closed"},
	{"Workbook_Close", "Runs when the Excel Workbook is closed"},
	{"Workbook_BeforeClose", "Runs when the Excel Workbook is closed"},
	{"Workbook_Deactivate", "Runs when the Excel Workbook is deactivated"},
	{"AutoNew", "Runs when a new Word document is created"},
	{"Document_New", "Runs when a new Word document is created"},
	{"Worksheet_Change", "Runs when a cell on the worksheet is changed"},
	{"Worksheet_Calculate", "Runs when the worksheet is recalculated"},
	{"Worksheet_SelectionChange", "Runs when the selection on the worksheet changes"},
	{"Workbook_SheetActivate", "Runs when any sheet of the workbook is activated"},
}

var defaultSuspicious = []Rule{
	{"Environ", "May read system environment variables"},
	{"Open", "May open a file"},
	{"Write", "May write to a file (if combined with Open)"},
	{"Put", "May write to a file (if combined with Open)"},
	{"Output", "May write to a file (if combined with Open)"},
	{"Binary", "May read or write a binary file (if combined with Open)"},
	{"FileCopy", "May copy a file"},
	{"CopyFile", "May copy a file"},
	{"Kill", "May delete a file"},
	{"CreateTextFile", "May create a text file"},
	{"ADODB.Stream", "May create a text file"},
	{"SaveToFile", "May create a text file"},
	{"Shell", "May run an executable file or a system command"},
	{"vbHide", "May run an executable file or a system command"},
	{"vbNormalFocus", "May run an executable file or a system command"},
	{"WScript.Shell", "May run an executable file or a system command"},
	{"ShellExecute", "May run an executable file or a system command"},
	{"ShellExecuteA", "May run an executable file or a system command"},
	{"MacScript", "May run an executable file or a system command on a Mac"},
	{"PowerShell", "May run PowerShell commands"},
	{"ExecuteExcel4Macro", "May run an Excel 4 Macro (aka XLM/XLF)"},
	{"CreateObject", "May create an OLE object"},
	{"GetObject", "May get an OLE object with a running instance"},
	{"CallByName", "May attempt to obfuscate malicious function calls"},
	{"Lib", "May run code from a DLL"},
	{"CreateThread", "May inject code into another process"},
	{"VirtualAlloc", "May inject code into another process"},
	{"RtlMoveMemory", "May inject code into another process"},
	{"URLDownloadToFile", "May download files from the Internet"},
	{"URLDownloadToFileA", "May download files from the Internet"},
	{"Msxml2.XMLHTTP", "May download files from the Internet"},
	{"Microsoft.XMLHTTP", "May download files from the Internet"},
	{"MSXML2.ServerXMLHTTP", "May download files from the Internet"},
	{"User-Agent", "May download files from the Internet"},
	{"Net.WebClient", "May download files from the Internet"},
	{"Chr", "May attempt to obfuscate specific strings"},
	{"ChrW", "May attempt to obfuscate specific strings"},
	{"ChrB", "May attempt to obfuscate specific strings"},
	{"StrReverse", "May attempt to obfuscate specific strings"},
	{"Xor", "May attempt to obfuscate specific strings"},
	{"SendKeys", "May control another application by simulating user keystrokes"},
	{"AppActivate", "May activate another application"},
	{"ShowWindow", "May hide the application"},
	{"Application.Visible", "May hide the application"},
	{"VBProject", "May attempt to modify the VBA code (self-modification)"},
	{"VBComponents", "May attempt to modify the VBA code (self-modification)"},
	{"CodeModule", "May attempt to modify the VBA code (self-modification)"},
	{"AddFromString", "May attempt to modify the VBA code (self-modification)"},
	{"RegWrite", "May write to the Windows registry"},
	{"RegRead", "May read from the Windows registry"},
}

var defaultIOC = []Pattern{
	{"URL", `(?i)\bhttps?://[a-z0-9._~:/?#\[\]@!$&'()*+,;=%-]+`},
	{"IPv4 address", `\b(?:(?:25[0-5]|2[0-4][0-9]|1?[0-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1?[0-9]?[0-9])\b`},
	{"Executable file name", `(?i)\b[\w-]+\.(?:exe|pif|scr|msi|hta|cpl|bat|cmd|vbs|vbe|jse?|wsf|ps1|dll|jar)\b`},
}
